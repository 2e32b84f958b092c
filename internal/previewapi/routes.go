package previewapi

import (
	"github.com/go-chi/chi/v5"
)

// RegisterPreviewRoutes mounts the batch preview endpoint on the router.
func RegisterPreviewRoutes(r chi.Router, handler *Handler) {
	r.Post(PreviewsPath, handler.ServeHTTP)
}
