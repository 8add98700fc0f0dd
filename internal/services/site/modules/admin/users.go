package admin

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/folio/internal/services/site/module"
	"github.com/louisbranch/folio/internal/services/site/platform/forms"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/templates"
	"go.uber.org/zap"
)

// UserService is the account moderation surface.
type UserService interface {
	UserLister
	Approve(ctx context.Context, userID string, adminID string) error
	Reject(ctx context.Context, userID string, adminID string) error
	Suspend(ctx context.Context, userID string, adminID string) error
	SetRole(ctx context.Context, userID string, role string, adminID string) error
}

// Users serves /admin/users/.
type Users struct {
	service UserService
}

// NewUsers returns the user moderation module.
func NewUsers(service UserService) Users {
	return Users{service: service}
}

// ID returns a stable module identifier.
func (Users) ID() string { return "admin-users" }

// Mount wires user moderation handlers.
func (m Users) Mount(deps module.Dependencies) (module.Mount, error) {
	h := usersHandlers{base: newBase(deps), service: m.service}
	prefix := routepath.AdminUsersPrefix
	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" "+prefix+"{$}", h.handleList)
	mux.HandleFunc(http.MethodPost+" "+prefix+"{user}/approve", h.status(m.service.Approve, "approved"))
	mux.HandleFunc(http.MethodPost+" "+prefix+"{user}/reject", h.status(m.service.Reject, "rejected"))
	mux.HandleFunc(http.MethodPost+" "+prefix+"{user}/suspend", h.status(m.service.Suspend, "suspended"))
	mux.HandleFunc(http.MethodPost+" "+prefix+"{user}/role", h.handleRole)
	mux.HandleFunc(prefix, h.WriteNotFound)
	return module.Mount{Prefix: prefix, Handler: mux}, nil
}

type usersHandlers struct {
	base
	service UserService
}

func (h usersHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case storage.UserStatusPending, storage.UserStatusApproved, storage.UserStatusRejected, storage.UserStatusSuspended:
	default:
		status = ""
	}
	number := httpx.PageParam(r)
	users, err := h.service.ListUsers(r.Context(), status, number, pageSize)
	if err != nil {
		h.WriteError(w, r, err)
		return
	}
	pager := listingPager(number, users.Total)
	h.page(w, r, "admin.users.title", http.StatusOK, func(loc templates.Localizer) templ.Component {
		return templates.Users(loc, templates.UsersView{
			Users:    users.Users,
			Status:   status,
			Pager:    pager,
			ViewerID: h.RequestUserID(r),
		})
	})
}

func (h usersHandlers) status(apply func(ctx context.Context, userID string, adminID string) error, outcome string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("user")
		adminID := h.RequestUserID(r)
		if err := apply(r.Context(), userID, adminID); err != nil {
			h.WriteError(w, r, err)
			return
		}
		h.Logger().Info("user status changed", zap.String("user_id", userID), zap.String("status", outcome), zap.String("admin_id", adminID))
		h.done(w, r, nil, returnTo(r, routepath.AdminUsersPrefix), "notice.users."+outcome)
	}
}

func (h usersHandlers) handleRole(w http.ResponseWriter, r *http.Request) {
	if !h.parse(w, r) {
		return
	}
	err := h.service.SetRole(r.Context(), r.PathValue("user"), forms.Value(r, "role"), h.RequestUserID(r))
	h.done(w, r, err, returnTo(r, routepath.AdminUsersPrefix), "notice.users.role_changed")
}
