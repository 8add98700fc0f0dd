// Package pagerender centralizes module page rendering behavior.
package pagerender

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/flash"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	sitei18n "github.com/louisbranch/folio/internal/services/site/platform/i18n"
	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

// RequestResolver resolves viewer, language and chrome state from a request.
// This decouples platform rendering from the module-layer Dependencies type.
type RequestResolver interface {
	ResolveRequestViewer(r *http.Request) module.Viewer
	ResolveRequestLanguage(r *http.Request) string
	ResolveRequestChrome(r *http.Request) module.Chrome
	RequestPolicy() requestmeta.Policy
}

// ModulePage describes a module page response for both full-page and HTMX flows.
type ModulePage struct {
	Title       string
	Description string
	StatusCode  int
	Fragment    templ.Component
}

type emptyComponent struct{}

func (emptyComponent) Render(context.Context, io.Writer) error {
	return nil
}

// WriteModulePage writes a module page. HTMX requests receive the fragment
// alone; full requests get the layout with chrome and any flash notice.
func WriteModulePage(w http.ResponseWriter, r *http.Request, resolver RequestResolver, page ModulePage) error {
	if w == nil {
		return nil
	}
	statusCode := page.StatusCode
	if statusCode <= 0 {
		statusCode = http.StatusOK
	}
	fragment := page.Fragment
	if fragment == nil {
		fragment = emptyComponent{}
	}

	var resolveLanguage module.ResolveLanguage
	if resolver != nil {
		resolveLanguage = resolver.ResolveRequestLanguage
	}
	loc, lang := sitei18n.ResolveLocalizer(w, r, resolveLanguage)
	ctx := httpx.RequestContext(r)

	var buf bytes.Buffer
	if httpx.IsHTMXRequest(r) {
		if err := fragment.Render(ctx, &buf); err != nil {
			return err
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusCode)
		_, _ = w.Write(buf.Bytes())
		return nil
	}

	layout := templates.Page{
		Title:       page.Title,
		Description: page.Description,
		Lang:        lang,
		Loc:         loc,
		Languages:   sitei18n.Options(lang),
	}
	if r != nil && r.URL != nil {
		layout.CurrentPath = r.URL.Path
		layout.Admin = strings.HasPrefix(r.URL.Path, routepath.AdminPrefix)
	}
	if resolver != nil {
		layout.Viewer = resolver.ResolveRequestViewer(r)
		layout.Chrome = resolver.ResolveRequestChrome(r)
		layout.Notice = resolveNotice(w, r, loc, resolver.RequestPolicy())
	}
	if err := templates.Layout(layout).Render(templ.WithChildren(ctx, fragment), &buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
	return nil
}

func resolveNotice(w http.ResponseWriter, r *http.Request, loc sitei18n.Localizer, policy requestmeta.Policy) *templates.Notice {
	notice, ok := flash.ReadAndClear(w, r, policy)
	if !ok {
		return nil
	}
	args := make([]any, 0, len(notice.Args))
	for _, arg := range notice.Args {
		args = append(args, arg)
	}
	message := strings.TrimSpace(loc.Sprintf(notice.Key, args...))
	if message == "" {
		message = strings.TrimSpace(notice.Key)
	}
	if message == "" {
		return nil
	}
	return &templates.Notice{Kind: string(notice.Kind), Message: message}
}
