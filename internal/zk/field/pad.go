package field

import (
	"fmt"

	dErrors "clearcrew/pkg/domain-errors"
)

// LeftPad32 right-aligns b in a 32-byte word, the encoding of a bytes32
// argument that carries a big-endian integer. Values longer than 32 bytes are
// rejected rather than truncated.
func LeftPad32(b []byte) ([32]byte, error) {
	var out [32]byte
	if len(b) > len(out) {
		return out, dErrors.New(dErrors.CodeInvalidScalarEncoding,
			fmt.Sprintf("value is %d bytes, longer than 32", len(b)))
	}
	copy(out[len(out)-len(b):], b)
	return out, nil
}
