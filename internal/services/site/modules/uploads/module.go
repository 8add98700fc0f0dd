// Package uploads accepts editor image uploads and returns their URL.
package uploads

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
)

// multipartOverhead allows for form boundaries around the file part.
const multipartOverhead = 1 << 20

// Service stores uploaded images.
type Service interface {
	Save(ctx context.Context, uploaderID string, filename string, r io.Reader) (storage.Upload, error)
	MaxBytes() int64
}

// Module provides POST /app/uploads/.
type Module struct {
	service Service
}

// New returns an uploads module.
func New(service Service) Module {
	return Module{service: service}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "uploads" }

// Mount wires the upload handler.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	h := handlers{Base: modulehandler.NewBase(deps), service: m.service}
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodPost+" "+routepath.AppUploadsPrefix+"{$}", h.handleUpload)
	mux.HandleFunc(routepath.AppUploadsPrefix, httpx.MethodNotAllowed(http.MethodPost))
	return module.Mount{Prefix: routepath.AppUploadsPrefix, Handler: mux}, nil
}

type handlers struct {
	modulehandler.Base
	service Service
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (h handlers) writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger().Error("upload failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	loc, _ := h.PageLocalizer(w, r)
	_ = httpx.WriteJSONError(w, status, h.ErrorMessage(loc, err))
}

func (h handlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.service.MaxBytes()+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeJSONError(w, r, apperrors.EK(apperrors.KindInvalidInput, "error.uploads.too_large", "upload is too large"))
			return
		}
		h.writeJSONError(w, r, apperrors.EK(apperrors.KindInvalidInput, "error.uploads.missing_file", "choose a file to upload"))
		return
	}
	defer file.Close()
	upload, err := h.service.Save(r.Context(), h.RequestUserID(r), header.Filename, file)
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, uploadResponse{URL: upload.Path})
}
