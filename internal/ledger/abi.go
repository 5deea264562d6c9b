package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"clearcrew/internal/zk/field"
	dErrors "clearcrew/pkg/domain-errors"
)

// MethodSubmit is the contract entry point every report goes through.
const MethodSubmit = "submitWhistleblow"

// ContractABI declares only the entry point this client calls.
const ContractABI = `[{
	"type": "function",
	"name": "submitWhistleblow",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "proof", "type": "bytes"},
		{"name": "contentId", "type": "string"},
		{"name": "root", "type": "bytes32"}
	],
	"outputs": []
}]`

// ParseABI parses ContractABI.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(ContractABI))
}

// RootWord encodes a tree root as the bytes32 argument: its big-endian value
// left-padded with zero bytes.
func RootWord(root field.Scalar) ([32]byte, error) {
	return field.LeftPad32(root.MinimalBytes())
}

// PackSubmit builds the call data for submitWhistleblow(proof, contentId, root).
func PackSubmit(parsed abi.ABI, proof []byte, contentID string, root field.Scalar) ([]byte, error) {
	word, err := RootWord(root)
	if err != nil {
		return nil, err
	}
	data, err := parsed.Pack(MethodSubmit, proof, contentID, word)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerSubmissionFailed, "failed to encode contract call")
	}
	return data, nil
}
