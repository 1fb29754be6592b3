package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/opnvault/internal/apperr"
	"github.com/starford/opnvault/internal/checksum"
	"github.com/starford/opnvault/internal/models"
	"github.com/starford/opnvault/internal/vault"
)

const (
	maxJSONBody    = 10 << 20
	maxContentBody = 50 << 20
)

// Handler holds API route handlers.
type Handler struct {
	store *vault.Store
}

// NewHandler creates a new Handler.
func NewHandler(store *vault.Store) *Handler {
	return &Handler{store: store}
}

// lookup resolves the {id} URL parameter to a file, writing the error
// response itself when that fails.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, op string) (models.VaultFile, bool) {
	id := chi.URLParam(r, "id")
	f, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, op, id, err)
		return models.VaultFile{}, false
	}
	return f, true
}

// ListFiles handles GET /api/files.
//
//	@Summary		List files, optionally filtered by name or tag
//	@Tags			files
//	@Produce		json
//	@Param			q	query		string	false	"Case-insensitive name or tag substring"
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, "list files", "", err)
		return
	}
	usage := vault.TotalSize(files)
	files = vault.Filter(files, r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, FileListResponse{Files: files, Total: len(files), TotalBytes: usage})
}

// GetFile handles GET /api/files/{id}.
//
//	@Summary		Get file metadata
//	@Tags			files
//	@Produce		json
//	@Param			id	path		string	true	"File id"
//	@Success		200	{object}	VaultFile
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id} [get]
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r, "get file")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// CreateFile handles POST /api/files.
//
//	@Summary		Create a new file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFileRequest	true	"File to create"
//	@Success		201		{object}	VaultFile
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files [post]
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	f, err := h.store.Create(r.Context(), req.Name, []byte(req.Content))
	if err != nil {
		writeError(w, "create file", "", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// UploadFile handles POST /api/files/upload.
//
//	@Summary		Upload a document into the vault
//	@Tags			files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Document to upload"
//	@Success		201		{object}	VaultFile
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/upload [post]
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContentBody)
	if err := r.ParseMultipartForm(maxContentBody); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form or file too large"))
		return
	}
	src := vault.SourceFunc(func(_ context.Context) (*vault.Picked, error) {
		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &vault.Picked{Name: header.Filename, Body: file}, nil
	})
	f, err := h.store.Upload(r.Context(), src)
	if err != nil {
		writeError(w, "upload file", "", err)
		return
	}
	if f == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field"))
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// ReadContent handles GET /api/files/{id}/content.
//
//	@Summary		Download file content
//	@Tags			files
//	@Produce		octet-stream
//	@Param			id	path	string	true	"File id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id}/content [get]
func (h *Handler) ReadContent(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r, "read file")
	if !ok {
		return
	}
	data, err := h.store.Read(r.Context(), f)
	if err != nil {
		writeError(w, "read file", f.ID, err)
		return
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name)))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.Name}))
	w.Header().Set("ETag", checksum.ETag(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// WriteContent handles PUT /api/files/{id}/content.
//
//	@Summary		Replace file content
//	@Tags			files
//	@Accept			octet-stream
//	@Produce		json
//	@Param			id			path		string	true	"File id"
//	@Param			If-Match	header		string	false	"ETag from a previous read"
//	@Success		200			{object}	VaultFile
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id}/content [put]
func (h *Handler) WriteContent(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r, "write file")
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxContentBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("body too large or unreadable"))
		return
	}
	updated, err := h.store.WriteIfMatch(r.Context(), f, data, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "write file", f.ID, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(data))
	writeJSON(w, http.StatusOK, updated)
}

// RenameFile handles PATCH /api/files/{id}.
//
//	@Summary		Rename a file
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"File id"
//	@Param			body	body		RenameFileRequest	true	"New name"
//	@Success		200		{object}	VaultFile
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id} [patch]
func (h *Handler) RenameFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req RenameFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	f, ok := h.lookup(w, r, "rename file")
	if !ok {
		return
	}
	renamed, err := h.store.Rename(r.Context(), f, req.Name)
	if err != nil {
		writeError(w, "rename file", f.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, renamed)
}

// DeleteFile handles DELETE /api/files/{id}.
//
//	@Summary		Delete a file and its tags
//	@Tags			files
//	@Produce		json
//	@Param			id	path	string	true	"File id"
//	@Success		204
//	@Success		200	{object}	DeleteWarningResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id} [delete]
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r, "delete file")
	if !ok {
		return
	}
	err := h.store.Delete(r.Context(), f)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case apperr.IsNonFatal(err):
		writeJSON(w, http.StatusOK, DeleteWarningResponse{Warning: "file deleted but its tags could not be removed"})
	default:
		writeError(w, "delete file", f.ID, err)
	}
}

// GetTags handles GET /api/files/{id}/tags.
//
//	@Summary		Get the tags of a file
//	@Tags			tags
//	@Produce		json
//	@Param			id	path		string	true	"File id"
//	@Success		200	{object}	TagsResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id}/tags [get]
func (h *Handler) GetTags(w http.ResponseWriter, r *http.Request) {
	f, ok := h.lookup(w, r, "get tags")
	if !ok {
		return
	}
	t, err := h.store.Tags(r.Context(), f.ID)
	if err != nil {
		writeError(w, "get tags", f.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: t})
}

// SetTags handles PUT /api/files/{id}/tags.
//
//	@Summary		Replace the tags of a file
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"File id"
//	@Param			body	body		SetTagsRequest	true	"New tag list"
//	@Success		200		{object}	TagsResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/files/{id}/tags [put]
func (h *Handler) SetTags(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req SetTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}
	f, ok := h.lookup(w, r, "set tags")
	if !ok {
		return
	}
	stored, err := h.store.SetTags(r.Context(), f.ID, req.Tags)
	if err != nil {
		writeError(w, "set tags", f.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: stored})
}
