package home

import (
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.HandleFunc(http.MethodGet+" "+routepath.Root+"{$}", h.handleIndex)
	mux.HandleFunc(routepath.Root, h.WriteNotFound)
}
