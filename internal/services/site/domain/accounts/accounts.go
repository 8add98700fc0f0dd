// Package accounts implements sign-up with admin approval, password
// sign-in and cookie sessions.
package accounts

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/folio/internal/platform/id"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is used when no TTL is configured.
const DefaultSessionTTL = 30 * 24 * time.Hour

// touchInterval limits LastSeenAt writes to one per interval per session.
const touchInterval = time.Minute

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,24}$`)

// dummyHash keeps unknown-user sign-ins as slow as wrong-password ones.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("folio-timing-equalizer"), bcrypt.MinCost)

// Store is the persistence the service needs.
type Store interface {
	storage.UserStore
	storage.SessionStore
}

// Service owns account and session rules.
type Service struct {
	store      Store
	logger     *zap.Logger
	now        func() time.Time
	sessionTTL time.Duration
	cost       int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionTTL sets how long new sessions live.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService builds an account service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		logger:     zap.NewNop(),
		now:        time.Now,
		sessionTTL: DefaultSessionTTL,
		cost:       bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUpInput carries the sign-up form.
type SignUpInput struct {
	Email       string
	Username    string
	DisplayName string
	Password    string
}

// SignUp registers a pending member. The first account ever created is an
// approved admin instead.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (storage.User, error) {
	return s.create(ctx, in, false)
}

// CreateAdmin registers an approved admin regardless of existing users.
func (s *Service) CreateAdmin(ctx context.Context, in SignUpInput) (storage.User, error) {
	return s.create(ctx, in, true)
}

func (s *Service) create(ctx context.Context, in SignUpInput, admin bool) (storage.User, error) {
	if s == nil || s.store == nil {
		return storage.User{}, apperrors.E(apperrors.KindUnavailable, "account store is not configured")
	}
	in, err := normalizeSignUp(in)
	if err != nil {
		return storage.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hash password: %w", err)
	}
	userID, err := id.NewID()
	if err != nil {
		return storage.User{}, err
	}
	now := s.now().UTC()
	user := storage.User{
		ID:           userID,
		Email:        in.Email,
		Username:     in.Username,
		DisplayName:  in.DisplayName,
		PasswordHash: string(hash),
		Role:         storage.RoleMember,
		Status:       storage.UserStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	promote := func(u storage.User) storage.User {
		u.Role = storage.RoleAdmin
		u.Status = storage.UserStatusApproved
		u.ApprovedAt = &now
		u.ApprovedBy = u.ID
		return u
	}
	if admin {
		user = promote(user)
	}
	created, err := s.store.CreateUser(ctx, user, promote)
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return storage.User{}, apperrors.Wrap(apperrors.KindConflict, "error.accounts.taken", "email or username already registered", err)
		}
		return storage.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered",
		zap.String("user_id", created.ID),
		zap.String("role", created.Role),
		zap.String("status", created.Status),
	)
	return created, nil
}

func normalizeSignUp(in SignUpInput) (SignUpInput, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return in, apperrors.EK(apperrors.KindInvalidInput, "error.accounts.invalid_email", "email is invalid")
	}
	if !usernamePattern.MatchString(in.Username) {
		return in, apperrors.EK(apperrors.KindInvalidInput, "error.accounts.invalid_username", "username must be 3-24 of a-z, 0-9 or _")
	}
	if n := utf8.RuneCountInString(in.DisplayName); n < 1 || n > 48 {
		return in, apperrors.EK(apperrors.KindInvalidInput, "error.accounts.invalid_display_name", "display name must be 1-48 characters")
	}
	if err := validatePassword(in.Password); err != nil {
		return in, err
	}
	return in, nil
}

func validatePassword(password string) error {
	if len(password) < 8 || len(password) > 72 {
		return apperrors.EK(apperrors.KindInvalidInput, "error.accounts.invalid_password", "password must be 8-72 bytes")
	}
	return nil
}

// SignIn checks credentials and opens a session. Unknown identifiers and
// wrong passwords fail identically.
func (s *Service) SignIn(ctx context.Context, identifier string, password string) (storage.User, storage.Session, error) {
	if s == nil || s.store == nil {
		return storage.User{}, storage.Session{}, apperrors.E(apperrors.KindUnavailable, "account store is not configured")
	}
	invalid := apperrors.EK(apperrors.KindUnauthorized, "error.accounts.invalid_credentials", "invalid credentials")
	user, err := s.store.GetUserByLogin(ctx, strings.ToLower(strings.TrimSpace(identifier)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return storage.User{}, storage.Session{}, invalid
		}
		return storage.User{}, storage.Session{}, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return storage.User{}, storage.Session{}, invalid
	}
	if err := statusError(user); err != nil {
		return user, storage.Session{}, err
	}

	token, err := newSessionToken()
	if err != nil {
		return storage.User{}, storage.Session{}, err
	}
	now := s.now().UTC()
	session := storage.Session{
		ID:         token,
		UserID:     user.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.sessionTTL),
		LastSeenAt: now,
	}
	if err := s.store.PutSession(ctx, session); err != nil {
		return storage.User{}, storage.Session{}, fmt.Errorf("put session: %w", err)
	}
	s.logger.Info("user signed in", zap.String("user_id", user.ID))
	return user, session, nil
}

func statusError(user storage.User) error {
	switch user.Status {
	case storage.UserStatusApproved:
		return nil
	case storage.UserStatusPending:
		return apperrors.EK(apperrors.KindForbidden, "error.accounts.pending", "account is awaiting approval")
	default:
		return apperrors.EK(apperrors.KindForbidden, "error.accounts.blocked", "account is not active")
	}
}

func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SignOut deletes the session. Unknown sessions are not an error.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if s == nil || s.store == nil {
		return nil
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ResolveSession returns the approved user behind a live session.
// Expired sessions are deleted on sight.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (storage.User, error) {
	unauthorized := apperrors.E(apperrors.KindUnauthorized, "session is not valid")
	if s == nil || s.store == nil {
		return storage.User{}, unauthorized
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return storage.User{}, unauthorized
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, unauthorized
		}
		return storage.User{}, fmt.Errorf("load session: %w", err)
	}
	now := s.now().UTC()
	if !now.Before(session.ExpiresAt) {
		if err := s.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("delete expired session", zap.Error(err))
		}
		return storage.User{}, unauthorized
	}
	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, unauthorized
		}
		return storage.User{}, fmt.Errorf("load session user: %w", err)
	}
	if user.Status != storage.UserStatusApproved {
		return storage.User{}, unauthorized
	}
	if now.Sub(session.LastSeenAt) >= touchInterval {
		if err := s.store.TouchSession(ctx, sessionID, now); err != nil {
			s.logger.Warn("touch session", zap.Error(err))
		}
	}
	return user, nil
}

// ListUsers pages users, optionally filtered by status.
func (s *Service) ListUsers(ctx context.Context, status string, page int, perPage int) (storage.UserPage, error) {
	if s == nil || s.store == nil {
		return storage.UserPage{}, apperrors.E(apperrors.KindUnavailable, "account store is not configured")
	}
	status = strings.TrimSpace(status)
	switch status {
	case "", storage.UserStatusPending, storage.UserStatusApproved, storage.UserStatusRejected, storage.UserStatusSuspended:
	default:
		return storage.UserPage{}, apperrors.EK(apperrors.KindInvalidInput, "error.accounts.invalid_status", "unknown user status")
	}
	page = max(page, 1)
	if perPage <= 0 {
		perPage = 50
	}
	return s.store.ListUsers(ctx, status, perPage, (page-1)*perPage)
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, userID string) (storage.User, error) {
	if s == nil || s.store == nil {
		return storage.User{}, apperrors.E(apperrors.KindUnavailable, "account store is not configured")
	}
	user, err := s.store.GetUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return storage.User{}, notFound(err)
	}
	return user, nil
}

// Approve activates a pending or rejected account.
func (s *Service) Approve(ctx context.Context, userID string, adminID string) error {
	return s.setStatus(ctx, userID, adminID, storage.UserStatusApproved)
}

// Reject declines an account and ends its sessions.
func (s *Service) Reject(ctx context.Context, userID string, adminID string) error {
	return s.setStatus(ctx, userID, adminID, storage.UserStatusRejected)
}

// Suspend blocks an account and ends its sessions.
func (s *Service) Suspend(ctx context.Context, userID string, adminID string) error {
	return s.setStatus(ctx, userID, adminID, storage.UserStatusSuspended)
}

// ApproveByLogin approves the account matching an email or username.
func (s *Service) ApproveByLogin(ctx context.Context, identifier string) (storage.User, error) {
	if s == nil || s.store == nil {
		return storage.User{}, apperrors.E(apperrors.KindUnavailable, "account store is not configured")
	}
	user, err := s.store.GetUserByLogin(ctx, strings.ToLower(strings.TrimSpace(identifier)))
	if err != nil {
		return storage.User{}, notFound(err)
	}
	if err := s.setStatus(ctx, user.ID, "", storage.UserStatusApproved); err != nil {
		return storage.User{}, err
	}
	return s.store.GetUser(ctx, user.ID)
}

func (s *Service) setStatus(ctx context.Context, userID string, adminID string, status string) error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "account store is not configured")
	}
	userID = strings.TrimSpace(userID)
	adminID = strings.TrimSpace(adminID)
	if status != storage.UserStatusApproved && userID == adminID {
		return apperrors.EK(apperrors.KindForbidden, "error.accounts.self_change", "admins cannot block themselves")
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return notFound(err)
	}
	if err := s.store.UpdateUserStatus(ctx, userID, status, adminID, s.now().UTC()); err != nil {
		return notFound(err)
	}
	if status != storage.UserStatusApproved {
		if err := s.store.DeleteUserSessions(ctx, userID); err != nil {
			return fmt.Errorf("end user sessions: %w", err)
		}
	}
	s.logger.Info("user status changed",
		zap.String("user_id", userID),
		zap.String("status", status),
		zap.String("admin_id", adminID),
	)
	return nil
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (s *Service) SetRole(ctx context.Context, userID string, role string, adminID string) error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "account store is not configured")
	}
	role = strings.TrimSpace(role)
	if role != storage.RoleMember && role != storage.RoleAdmin {
		return apperrors.EK(apperrors.KindInvalidInput, "error.accounts.invalid_role", "unknown role")
	}
	userID = strings.TrimSpace(userID)
	if userID == strings.TrimSpace(adminID) && role != storage.RoleAdmin {
		return apperrors.EK(apperrors.KindForbidden, "error.accounts.self_change", "admins cannot demote themselves")
	}
	if err := s.store.UpdateUserRole(ctx, userID, role, s.now().UTC()); err != nil {
		return notFound(err)
	}
	return nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID string, current string, next string) error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "account store is not configured")
	}
	user, err := s.store.GetUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return notFound(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return apperrors.EK(apperrors.KindInvalidInput, "error.accounts.wrong_password", "current password does not match")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, user.ID, string(hash), s.now().UTC()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions that expired before now.
func (s *Service) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	return s.store.DeleteExpiredSessions(ctx, now.UTC())
}

// CountUsers returns the number of registered users.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	if s == nil || s.store == nil {
		return 0, apperrors.E(apperrors.KindUnavailable, "account store is not configured")
	}
	return s.store.CountUsers(ctx)
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, "error.accounts.not_found", "user not found", err)
	}
	return err
}
