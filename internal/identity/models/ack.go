package models

// RegisterOptions controls Register.
type RegisterOptions struct {
	// ConfirmOverwrite must be set to replace a different resident identity.
	ConfirmOverwrite bool
}

// RegistryAck is what the registry returned for an accepted commitment.
type RegistryAck struct {
	Leaf    string `json:"leaf"`
	Root    string `json:"root"`
	Message string `json:"message,omitempty"`
}
