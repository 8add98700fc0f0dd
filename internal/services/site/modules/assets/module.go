// Package assets serves embedded static files and user uploads.
package assets

import (
	"io/fs"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/static"
)

// Static serves the embedded stylesheet and scripts under /static/.
type Static struct {
	files fs.FS
}

// NewStatic returns the static asset module over the embedded files.
func NewStatic() Static {
	return Static{files: static.FS}
}

// ID returns a stable module identifier.
func (Static) ID() string { return "static" }

// Mount wires the static file server.
func (m Static) Mount(module.Dependencies) (module.Mount, error) {
	files := http.StripPrefix(routepath.StaticPrefix, http.FileServerFS(m.files))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
	return module.Mount{Prefix: routepath.StaticPrefix, Handler: handler}, nil
}

// Uploads serves stored upload files under /uploads/.
type Uploads struct {
	files http.Handler
}

// NewUploads returns an upload file module over handler, usually the
// uploads service handler.
func NewUploads(handler http.Handler) Uploads {
	return Uploads{files: handler}
}

// ID returns a stable module identifier.
func (Uploads) ID() string { return "uploads-files" }

// Mount wires the upload file server.
func (m Uploads) Mount(module.Dependencies) (module.Mount, error) {
	return module.Mount{Prefix: routepath.UploadsPrefix, Handler: m.files}, nil
}
