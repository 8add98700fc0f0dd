// Package weberror renders shared error responses for site modules.
package weberror

import (
	"net/http"
	"strings"

	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	sitei18n "github.com/louisbranch/folio/internal/services/site/platform/i18n"
	"github.com/louisbranch/folio/internal/services/site/platform/pagerender"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

// ShouldRenderAppError reports whether status should use the error page.
func ShouldRenderAppError(statusCode int) bool {
	return statusCode == http.StatusForbidden || statusCode == http.StatusNotFound || statusCode >= http.StatusInternalServerError
}

// PublicMessage resolves a user-safe localized error message.
func PublicMessage(loc sitei18n.Localizer, err error) string {
	if err == nil {
		return ""
	}
	if loc != nil {
		if key := apperrors.LocalizationKey(err); key != "" {
			if localized := strings.TrimSpace(loc.Sprintf(key)); localized != "" && localized != key {
				return localized
			}
		}
	}
	statusCode := apperrors.HTTPStatus(err)
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusInternalServerError
	}
	if text := strings.TrimSpace(http.StatusText(statusCode)); text != "" {
		return text
	}
	return http.StatusText(http.StatusInternalServerError)
}

// WriteAppError writes a localized error page for full-page and HTMX requests.
func WriteAppError(w http.ResponseWriter, r *http.Request, statusCode int, message string, resolver pagerender.RequestResolver) {
	if w == nil {
		return
	}
	if !ShouldRenderAppError(statusCode) {
		statusCode = http.StatusInternalServerError
	}
	var resolveLanguage func(*http.Request) string
	if resolver != nil {
		resolveLanguage = resolver.ResolveRequestLanguage
	}
	loc, _ := sitei18n.ResolveLocalizer(w, r, resolveLanguage)
	err := pagerender.WriteModulePage(w, r, resolver, pagerender.ModulePage{
		Title:      templates.ErrorTitle(loc, statusCode),
		StatusCode: statusCode,
		Fragment:   templates.ErrorState(loc, statusCode, message),
	})
	if err != nil {
		http.Error(w, http.StatusText(statusCode), statusCode)
	}
}

// WriteModuleError writes a module-safe localized error response. Page-level
// failures render the error page; form-level failures answer plain text.
func WriteModuleError(w http.ResponseWriter, r *http.Request, err error, resolver pagerender.RequestResolver) {
	if w == nil {
		return
	}
	statusCode := apperrors.HTTPStatus(err)
	var resolveLanguage func(*http.Request) string
	if resolver != nil {
		resolveLanguage = resolver.ResolveRequestLanguage
	}
	loc, _ := sitei18n.ResolveLocalizer(w, r, resolveLanguage)
	if ShouldRenderAppError(statusCode) {
		message := ""
		if statusCode < http.StatusInternalServerError && apperrors.LocalizationKey(err) != "" {
			message = PublicMessage(loc, err)
		}
		WriteAppError(w, r, statusCode, message, resolver)
		return
	}
	http.Error(w, PublicMessage(loc, err), statusCode)
}
