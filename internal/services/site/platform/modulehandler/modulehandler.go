// Package modulehandler provides a composable base for site module handlers.
//
// Modules share handler infrastructure for viewer resolution, localization,
// page rendering, flash notices and error handling. Module handler structs
// embed Base rather than duplicating that scaffold.
package modulehandler

import (
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/domain/community"
	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/flash"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	sitei18n "github.com/louisbranch/folio/internal/services/site/platform/i18n"
	"github.com/louisbranch/folio/internal/services/site/platform/pagerender"
	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
	"github.com/louisbranch/folio/internal/services/site/platform/weberror"
	"github.com/louisbranch/folio/internal/services/site/templates"
	"go.uber.org/zap"
)

// Base carries the shared request-scoped resolvers used by module handlers.
type Base struct {
	resolveUserID   module.ResolveUserID
	resolveLanguage module.ResolveLanguage
	resolveViewer   module.ResolveViewer
	resolveChrome   module.ResolveChrome
	policy          requestmeta.Policy
	logger          *zap.Logger
}

// NewBase builds a handler base from module dependencies.
func NewBase(deps module.Dependencies) Base {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Base{
		resolveUserID:   deps.ResolveUserID,
		resolveLanguage: deps.ResolveLanguage,
		resolveViewer:   deps.ResolveViewer,
		resolveChrome:   deps.ResolveChrome,
		policy:          deps.RequestPolicy,
		logger:          logger,
	}
}

// ResolveRequestViewer resolves chrome viewer state for a request.
func (b Base) ResolveRequestViewer(r *http.Request) module.Viewer {
	if b.resolveViewer == nil {
		return module.Viewer{}
	}
	return b.resolveViewer(r)
}

// ResolveRequestLanguage returns the effective request language.
func (b Base) ResolveRequestLanguage(r *http.Request) string {
	if b.resolveLanguage == nil {
		return ""
	}
	return b.resolveLanguage(r)
}

// ResolveRequestChrome returns the theme and menus for a request.
func (b Base) ResolveRequestChrome(r *http.Request) module.Chrome {
	if b.resolveChrome == nil {
		return module.Chrome{}
	}
	return b.resolveChrome(r)
}

// RequestPolicy returns the proxy trust policy.
func (b Base) RequestPolicy() requestmeta.Policy {
	return b.policy
}

// Logger returns the module logger.
func (b Base) Logger() *zap.Logger {
	return b.logger
}

// RequestUserID extracts the authenticated user id from the request.
func (b Base) RequestUserID(r *http.Request) string {
	if r == nil || b.resolveUserID == nil {
		return ""
	}
	return strings.TrimSpace(b.resolveUserID(r))
}

// RequestActor returns the viewer as a community actor. Anonymous viewers
// yield the zero actor.
func (b Base) RequestActor(r *http.Request) community.Actor {
	viewer := b.ResolveRequestViewer(r)
	if !viewer.SignedIn {
		return community.Actor{}
	}
	return community.Actor{UserID: viewer.UserID, Role: viewer.Role}
}

// PageLocalizer resolves a localizer and language tag from the request.
func (b Base) PageLocalizer(w http.ResponseWriter, r *http.Request) (templates.Localizer, string) {
	return sitei18n.ResolveLocalizer(w, r, b.resolveLanguage)
}

// WritePage renders a module page (HTMX-aware).
func (b Base) WritePage(w http.ResponseWriter, r *http.Request, title string, statusCode int, fragment templ.Component) {
	b.WritePageWithDescription(w, r, title, "", statusCode, fragment)
}

// WritePageWithDescription renders a module page with a meta description.
func (b Base) WritePageWithDescription(w http.ResponseWriter, r *http.Request, title string, description string, statusCode int, fragment templ.Component) {
	if err := pagerender.WriteModulePage(w, r, b, pagerender.ModulePage{
		Title:       title,
		Description: description,
		StatusCode:  statusCode,
		Fragment:    fragment,
	}); err != nil {
		b.WriteError(w, r, err)
	}
}

// WriteFragment renders a bare component, used for HTMX swaps.
func (b Base) WriteFragment(w http.ResponseWriter, r *http.Request, fragment templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fragment.Render(httpx.RequestContext(r), w); err != nil {
		b.logger.Warn("render fragment", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

// WriteError renders a localized module error response. Unexpected
// failures are logged with their cause.
func (b Base) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
		path := ""
		if r != nil && r.URL != nil {
			path = r.URL.Path
		}
		b.logger.Error("request failed", zap.String("path", path), zap.Error(err))
	}
	weberror.WriteModuleError(w, r, err, b)
}

// WriteNotFound renders a 404 error page.
func (b Base) WriteNotFound(w http.ResponseWriter, r *http.Request) {
	weberror.WriteAppError(w, r, http.StatusNotFound, "", b)
}

// WriteForbidden renders a 403 error page.
func (b Base) WriteForbidden(w http.ResponseWriter, r *http.Request) {
	weberror.WriteAppError(w, r, http.StatusForbidden, "", b)
}

// Redirect stores notice for the next page and redirects (HTMX-aware).
func (b Base) Redirect(w http.ResponseWriter, r *http.Request, location string, notice flash.Notice) {
	flash.Write(w, r, notice, b.policy)
	httpx.WriteRedirect(w, r, location)
}

// ErrorMessage returns the user-safe message for err, used by forms that
// re-render with an inline error.
func (b Base) ErrorMessage(loc templates.Localizer, err error) string {
	return weberror.PublicMessage(loc, err)
}

// FormStatus returns the status a re-rendered form should carry for err.
func FormStatus(err error) int {
	status := apperrors.HTTPStatus(err)
	if status < http.StatusBadRequest {
		return http.StatusBadRequest
	}
	return status
}

// IsFormError reports whether err should be shown inline on a form rather
// than as an error page.
func IsFormError(err error) bool {
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidInput, apperrors.KindConflict:
		return true
	}
	return false
}
