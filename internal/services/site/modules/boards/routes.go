package boards

import (
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/routepath"
)

func registerRoutes(mux *http.ServeMux, h handlers) {
	mux.HandleFunc(http.MethodGet+" "+routepath.BoardsPrefix+"{$}", h.handleIndex)
	mux.HandleFunc(http.MethodGet+" "+routepath.BoardsPrefix+"{board}", h.handleBoard)
	mux.HandleFunc(http.MethodGet+" "+routepath.BoardsPrefix+"{board}/posts/{post}", h.handlePost)
	mux.HandleFunc(routepath.BoardsPrefix, h.WriteNotFound)
}
