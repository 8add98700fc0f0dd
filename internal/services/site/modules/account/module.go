// Package account serves the member profile and password change.
package account

import (
	"context"
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/flash"
	"github.com/louisbranch/folio/internal/services/site/platform/forms"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
	"go.uber.org/zap"
)

// Service is the account surface the profile page needs.
type Service interface {
	GetUser(ctx context.Context, userID string) (storage.User, error)
	ChangePassword(ctx context.Context, userID string, current string, next string) error
}

// Module provides the /app/account/ routes.
type Module struct {
	service Service
}

// New returns an account module.
func New(service Service) Module {
	return Module{service: service}
}

// ID returns a stable module identifier.
func (Module) ID() string { return "account" }

// Mount wires account handlers.
func (m Module) Mount(deps module.Dependencies) (module.Mount, error) {
	h := handlers{Base: modulehandler.NewBase(deps), service: m.service}
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+routepath.AppAccountPrefix+"{$}", h.handleAccount)
	mux.HandleFunc(http.MethodPost+" "+routepath.AppAccountPassword, h.handlePassword)
	mux.HandleFunc(routepath.AppAccountPrefix, h.WriteNotFound)
	return module.Mount{Prefix: routepath.AppAccountPrefix, Handler: mux}, nil
}

type handlers struct {
	modulehandler.Base
	service Service
}

func (h handlers) render(w http.ResponseWriter, r *http.Request, status int, formErr error) {
	viewer := h.ResolveRequestViewer(r)
	user, err := h.service.GetUser(r.Context(), viewer.UserID)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	loc, _ := h.PageLocalizer(w, r)
	view := templates.AccountView{Viewer: viewer, Email: user.Email}
	if formErr != nil {
		view.Error = h.ErrorMessage(loc, formErr)
	}
	h.WritePage(w, r, templates.T(loc, "member.account.title"), status, templates.Account(loc, view))
}

func (h handlers) handleAccount(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, nil)
}

func (h handlers) handlePassword(w http.ResponseWriter, r *http.Request) {
	if err := forms.Parse(w, r); err != nil {
		h.WriteError(w, r, apperrors.E(apperrors.KindInvalidInput, "parse password form"))
		return
	}
	userID := h.RequestUserID(r)
	err := h.service.ChangePassword(r.Context(), userID, r.FormValue("current"), r.FormValue("next"))
	if err != nil {
		if !modulehandler.IsFormError(err) {
			h.WriteError(w, r, err)
			return
		}
		h.render(w, r, modulehandler.FormStatus(err), err)
		return
	}
	h.Logger().Info("password changed", zap.String("user_id", userID))
	h.Redirect(w, r, routepath.AppAccountPrefix, flash.Success("notice.account.password_changed"))
}
