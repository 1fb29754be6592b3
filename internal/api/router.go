package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/opnvault/internal/vault"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(store *vault.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/files", h.ListFiles)
	r.Post("/files", h.CreateFile)
	r.Post("/files/upload", h.UploadFile)

	r.Route("/files/{id}", func(r chi.Router) {
		r.Get("/", h.GetFile)
		r.Patch("/", h.RenameFile)
		r.Delete("/", h.DeleteFile)
		r.Get("/content", h.ReadContent)
		r.Put("/content", h.WriteContent)
		r.Get("/tags", h.GetTags)
		r.Put("/tags", h.SetTags)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
