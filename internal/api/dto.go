package api

import "github.com/starford/opnvault/internal/models"

// CreateFileRequest is the request body for creating a file.
type CreateFileRequest struct {
	Name    string `json:"name" example:"report.md" validate:"required"`
	Content string `json:"content" example:"# Q3 report"`
}

// RenameFileRequest is the request body for renaming a file.
type RenameFileRequest struct {
	Name string `json:"name" example:"final-report.md" validate:"required"`
}

// SetTagsRequest is the request body for replacing a file's tags.
type SetTagsRequest struct {
	Tags []string `json:"tags" example:"work,q3"`
}

// VaultFile is the file response type (aliased from the domain layer).
type VaultFile = models.VaultFile

// FileListResponse wraps a file listing. TotalBytes is the space used by the
// whole vault, regardless of the query.
type FileListResponse struct {
	Files      []VaultFile `json:"files" validate:"required"`
	Total      int         `json:"total" example:"42" validate:"required"`
	TotalBytes int64       `json:"total_bytes" example:"1048576" validate:"required"`
}

// TagsResponse wraps a file's tags.
type TagsResponse struct {
	Tags []string `json:"tags" validate:"required"`
}

// DeleteWarningResponse is returned when a file was deleted but its tag entry
// could not be removed.
type DeleteWarningResponse struct {
	Warning string `json:"warning" example:"tag entry not removed" validate:"required"`
}
