package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// Value is a registry field the server may encode either as a JSON string
// (hexadecimal) or as a JSON number (decimal). Numbers are normalized to
// 0x-prefixed hex on decode so every Value reads as hex.
type Value string

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	n, ok := new(big.Int).SetString(string(data), 10)
	if !ok || n.Sign() < 0 {
		return fmt.Errorf("registry value must be a hex string or a non-negative integer, got %s", data)
	}
	*v = Value("0x" + n.Text(16))
	return nil
}

func (v Value) String() string {
	return string(v)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	Role    string `json:"role"`
	UserID  Value  `json:"userId"`
	Name    string `json:"name"`
}

type PublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

type RegisterRequest struct {
	Leaf string `json:"leaf"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	Root    Value  `json:"root"`
}

type Leaf struct {
	UserID Value  `json:"userId"`
	Leaf   string `json:"leaf"`
}

// MerkleTreeResponse is the raw membership data for the caller's identity.
// Shape validation happens in the witness package.
type MerkleTreeResponse struct {
	Root         Value   `json:"root"`
	Leaves       []Leaf  `json:"leaves,omitempty"`
	ItemKey      Value   `json:"item_key"`
	ItemNextIdx  Value   `json:"item_nextIdx"`
	ItemNextKey  Value   `json:"item_nextKey"`
	ItemValue    Value   `json:"item_value,omitempty"`
	PathElements []Value `json:"path_elements"`
	PathIndices  []Value `json:"path_indices"`
	ActiveBits   []Value `json:"active_bits"`
}

// RelayRequest asks the registry to pin and anchor a report on the caller's
// behalf. EncryptedContent is base64; ZKProof is 0x-prefixed hex.
type RelayRequest struct {
	EncryptedContent string `json:"encryptedContent"`
	ZKProof          string `json:"zkProof"`
	NullifierHash    string `json:"nullifierHash"`
	Root             string `json:"root"`
}

type RelayResponse struct {
	Message string `json:"message"`
	IpfsCID string `json:"ipfsCid"`
	TxHash  string `json:"txHash"`
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
