package auth

import (
	"net/http"

	"github.com/louisbranch/folio/internal/services/site/domain/accounts"
	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/flash"
	"github.com/louisbranch/folio/internal/services/site/platform/forms"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/platform/sessioncookie"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
	"go.uber.org/zap"
)

type handlers struct {
	modulehandler.Base
	service Service
}

func newHandlers(service Service, deps module.Dependencies) handlers {
	return handlers{Base: modulehandler.NewBase(deps), service: service}
}

func nextTarget(raw string) string {
	if !routepath.IsLocal(raw) {
		return routepath.Root
	}
	return raw
}

func (h handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.ResolveRequestViewer(r).SignedIn {
		httpx.WriteRedirect(w, r, nextTarget(r.URL.Query().Get("next")))
		return
	}
	h.renderLogin(w, r, http.StatusOK, templates.LoginView{Next: r.URL.Query().Get("next")})
}

func (h handlers) renderLogin(w http.ResponseWriter, r *http.Request, status int, view templates.LoginView) {
	if !routepath.IsLocal(view.Next) {
		view.Next = ""
	}
	loc, _ := h.PageLocalizer(w, r)
	h.WritePage(w, r, templates.T(loc, "auth.login.title"), status, templates.Login(loc, view))
}

func (h handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := forms.Parse(w, r); err != nil {
		h.WriteError(w, r, apperrors.E(apperrors.KindInvalidInput, "parse login form"))
		return
	}
	identifier := forms.Value(r, "identifier")
	next := forms.Value(r, "next")
	_, session, err := h.service.SignIn(r.Context(), identifier, r.FormValue("password"))
	if err != nil {
		if apperrors.LocalizationKey(err) == "error.accounts.pending" {
			httpx.WriteRedirect(w, r, routepath.Pending)
			return
		}
		if !apperrors.IsKind(err, apperrors.KindUnauthorized) && !apperrors.IsKind(err, apperrors.KindForbidden) {
			h.WriteError(w, r, err)
			return
		}
		loc, _ := h.PageLocalizer(w, r)
		h.renderLogin(w, r, apperrors.HTTPStatus(err), templates.LoginView{
			Identifier: identifier,
			Next:       next,
			Error:      h.ErrorMessage(loc, err),
		})
		return
	}
	sessioncookie.Write(w, r, session.ID, session.ExpiresAt, h.RequestPolicy())
	h.Redirect(w, r, nextTarget(next), flash.Success("notice.auth.signed_in"))
}

func (h handlers) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	if h.ResolveRequestViewer(r).SignedIn {
		httpx.WriteRedirect(w, r, routepath.Root)
		return
	}
	h.renderSignup(w, r, http.StatusOK, templates.SignupView{})
}

func (h handlers) renderSignup(w http.ResponseWriter, r *http.Request, status int, view templates.SignupView) {
	loc, _ := h.PageLocalizer(w, r)
	h.WritePage(w, r, templates.T(loc, "auth.signup.title"), status, templates.Signup(loc, view))
}

func (h handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := forms.Parse(w, r); err != nil {
		h.WriteError(w, r, apperrors.E(apperrors.KindInvalidInput, "parse signup form"))
		return
	}
	in := accounts.SignUpInput{
		Email:       forms.Value(r, "email"),
		Username:    forms.Value(r, "username"),
		DisplayName: forms.Value(r, "display_name"),
		Password:    r.FormValue("password"),
	}
	user, err := h.service.SignUp(r.Context(), in)
	if err != nil {
		if !modulehandler.IsFormError(err) {
			h.WriteError(w, r, err)
			return
		}
		loc, _ := h.PageLocalizer(w, r)
		h.renderSignup(w, r, modulehandler.FormStatus(err), templates.SignupView{
			Email:       in.Email,
			Username:    in.Username,
			DisplayName: in.DisplayName,
			Error:       h.ErrorMessage(loc, err),
		})
		return
	}
	h.Logger().Info("user signed up", zap.String("user_id", user.ID), zap.String("status", user.Status))
	if user.Status == storage.UserStatusApproved {
		h.Redirect(w, r, routepath.Login, flash.Success("notice.auth.signup_approved"))
		return
	}
	httpx.WriteRedirect(w, r, routepath.Pending)
}

func (h handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := sessioncookie.Read(r); ok {
		if err := h.service.SignOut(r.Context(), token); err != nil {
			h.WriteError(w, r, err)
			return
		}
	}
	sessioncookie.Clear(w, r, h.RequestPolicy())
	h.Redirect(w, r, routepath.Root, flash.Success("notice.auth.signed_out"))
}

func (h handlers) handlePending(w http.ResponseWriter, r *http.Request) {
	loc, _ := h.PageLocalizer(w, r)
	h.WritePage(w, r, templates.T(loc, "auth.pending.title"), http.StatusOK, templates.Pending(loc))
}
