// Package admin serves the /admin/ back office: dashboard, users, catalog,
// content, boards, site settings and upload maintenance. Each area is its
// own module with its own prefix; the composer guards the whole tree.
package admin

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/domain/listing"
	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/flash"
	"github.com/louisbranch/folio/internal/services/site/platform/forms"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/templates"
)

const pageSize = 25

type base struct {
	modulehandler.Base
}

func newBase(deps module.Dependencies) base {
	return base{Base: modulehandler.NewBase(deps)}
}

// page renders an admin page titled by key.
func (b base) page(w http.ResponseWriter, r *http.Request, titleKey string, status int, build func(loc templates.Localizer) templ.Component) {
	loc, _ := b.PageLocalizer(w, r)
	b.WritePage(w, r, templates.T(loc, titleKey), status, build(loc))
}

// parse reads a form body, writing a 400 on failure.
func (b base) parse(w http.ResponseWriter, r *http.Request) bool {
	if err := forms.Parse(w, r); err != nil {
		b.WriteError(w, r, apperrors.E(apperrors.KindInvalidInput, "parse admin form"))
		return false
	}
	return true
}

// done redirects to location with a saved notice, or writes err.
func (b base) done(w http.ResponseWriter, r *http.Request, err error, location string, noticeKey string) {
	if err != nil {
		b.WriteError(w, r, err)
		return
	}
	b.Redirect(w, r, location, flash.Success(noticeKey))
}

// formFailed re-renders a form for validation errors and reports whether
// err was handled.
func (b base) formFailed(w http.ResponseWriter, r *http.Request, err error, render func(status int, message string)) bool {
	if err == nil {
		return false
	}
	if !modulehandler.IsFormError(err) {
		b.WriteError(w, r, err)
		return true
	}
	loc, _ := b.PageLocalizer(w, r)
	render(modulehandler.FormStatus(err), b.ErrorMessage(loc, err))
	return true
}

func listingPager(number int, total int) listing.Pager {
	return listing.NewPage(number, pageSize, pageSize).Paginate(total)
}

// returnTo sends the admin back to the list they acted from when the
// referer is an admin page, so filters and paging survive a mutation.
func returnTo(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || !strings.HasPrefix(ref.Path, routepath.AdminPrefix) {
		return fallback
	}
	if ref.Host != "" && ref.Host != r.Host {
		return fallback
	}
	target := ref.EscapedPath()
	if ref.RawQuery != "" {
		target += "?" + ref.RawQuery
	}
	if !routepath.IsLocal(target) {
		return fallback
	}
	return target
}
