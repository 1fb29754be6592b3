// Package models defines the domain types for opnvault.
package models

import "time"

// VaultFile is a document in the vault. It is derived from storage on every
// listing and is never persisted as a record of its own.
type VaultFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Tags       []string  `json:"tags"`
}
