package models

// VaultEntry is one sealed credential. Algorithm and Nonce are the metadata
// needed to open Ciphertext and are always stored with it.
type VaultEntry struct {
	UserName   string `json:"username"`
	Label      string `json:"label"`
	Algorithm  string `json:"algorithm"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}
