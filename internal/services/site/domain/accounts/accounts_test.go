package accounts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"github.com/louisbranch/folio/internal/services/site/storage/sqlite"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "folio.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	clock := &testClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(store,
		WithClock(clock.Now),
		WithBcryptCost(bcrypt.MinCost),
		WithSessionTTL(time.Hour),
	)
	return svc, clock
}

func signUp(t *testing.T, svc *Service, username string) storage.User {
	t.Helper()
	user, err := svc.SignUp(context.Background(), SignUpInput{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: "User " + username,
		Password:    "correct horse",
	})
	if err != nil {
		t.Fatalf("sign up %s: %v", username, err)
	}
	return user
}

func TestSignUpFirstUserBecomesApprovedAdmin(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	first := signUp(t, svc, "owner")
	if first.Role != storage.RoleAdmin || first.Status != storage.UserStatusApproved {
		t.Fatalf("first user = %s/%s, want admin/approved", first.Role, first.Status)
	}
	second := signUp(t, svc, "member")
	if second.Role != storage.RoleMember || second.Status != storage.UserStatusPending {
		t.Fatalf("second user = %s/%s, want member/pending", second.Role, second.Status)
	}
}

func TestSignUpValidation(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	signUp(t, svc, "owner")

	tests := []struct {
		name string
		in   SignUpInput
		key  string
		kind apperrors.Kind
	}{
		{name: "bad email", in: SignUpInput{Email: "nope", Username: "abc", DisplayName: "A", Password: "12345678"}, key: "error.accounts.invalid_email", kind: apperrors.KindInvalidInput},
		{name: "bad username", in: SignUpInput{Email: "a@example.com", Username: "a!", DisplayName: "A", Password: "12345678"}, key: "error.accounts.invalid_username", kind: apperrors.KindInvalidInput},
		{name: "short password", in: SignUpInput{Email: "a@example.com", Username: "abc", DisplayName: "A", Password: "short"}, key: "error.accounts.invalid_password", kind: apperrors.KindInvalidInput},
		{name: "blank display name", in: SignUpInput{Email: "a@example.com", Username: "abc", DisplayName: " ", Password: "12345678"}, key: "error.accounts.invalid_display_name", kind: apperrors.KindInvalidInput},
		{name: "email taken ignoring case", in: SignUpInput{Email: "OWNER@example.com", Username: "other", DisplayName: "A", Password: "12345678"}, key: "error.accounts.taken", kind: apperrors.KindConflict},
	}
	for _, tc := range tests {
		_, err := svc.SignUp(context.Background(), tc.in)
		if apperrors.KindOf(err) != tc.kind || apperrors.LocalizationKey(err) != tc.key {
			t.Fatalf("%s: err = %v (kind %s key %q), want %s %q", tc.name, err, apperrors.KindOf(err), apperrors.LocalizationKey(err), tc.kind, tc.key)
		}
	}
}

func TestSignInStatusAndCredentialErrors(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := signUp(t, svc, "owner")
	pending := signUp(t, svc, "pending")

	if _, _, err := svc.SignIn(ctx, "ghost", "whatever1"); apperrors.LocalizationKey(err) != "error.accounts.invalid_credentials" {
		t.Fatalf("unknown user err = %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "owner", "wrong pass"); apperrors.LocalizationKey(err) != "error.accounts.invalid_credentials" {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "pending@example.com", "correct horse"); apperrors.LocalizationKey(err) != "error.accounts.pending" {
		t.Fatalf("pending err = %v", err)
	}
	if err := svc.Reject(ctx, pending.ID, owner.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "pending", "correct horse"); apperrors.LocalizationKey(err) != "error.accounts.blocked" {
		t.Fatalf("rejected err = %v", err)
	}

	user, session, err := svc.SignIn(ctx, "OWNER", "correct horse")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if user.ID != owner.ID || session.UserID != owner.ID || session.ID == "" {
		t.Fatalf("session = %+v", session)
	}
}

func TestResolveSessionExpiresAndTracksStatus(t *testing.T) {
	t.Parallel()
	svc, clock := newTestService(t)
	ctx := context.Background()
	owner := signUp(t, svc, "owner")
	member := signUp(t, svc, "member")
	if err := svc.Approve(ctx, member.ID, owner.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, session, err := svc.SignIn(ctx, "member", "correct horse")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if got, err := svc.ResolveSession(ctx, session.ID); err != nil || got.ID != member.ID {
		t.Fatalf("ResolveSession() = %v, %v", got.ID, err)
	}

	// Invariant: suspending a user ends every session immediately.
	if err := svc.Suspend(ctx, member.ID, owner.ID); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := svc.ResolveSession(ctx, session.ID); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("suspended session err = %v", err)
	}

	_, ownerSession, err := svc.SignIn(ctx, "owner", "correct horse")
	if err != nil {
		t.Fatalf("owner sign in: %v", err)
	}
	clock.now = clock.now.Add(2 * time.Hour)
	if _, err := svc.ResolveSession(ctx, ownerSession.ID); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("expired session err = %v", err)
	}
}

func TestAdminCannotBlockOrDemoteSelf(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := signUp(t, svc, "owner")

	if err := svc.Suspend(ctx, owner.ID, owner.ID); apperrors.LocalizationKey(err) != "error.accounts.self_change" {
		t.Fatalf("self suspend err = %v", err)
	}
	if err := svc.SetRole(ctx, owner.ID, storage.RoleMember, owner.ID); apperrors.LocalizationKey(err) != "error.accounts.self_change" {
		t.Fatalf("self demote err = %v", err)
	}
	if err := svc.SetRole(ctx, owner.ID, "root", owner.ID); apperrors.LocalizationKey(err) != "error.accounts.invalid_role" {
		t.Fatalf("bad role err = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()
	owner := signUp(t, svc, "owner")

	if err := svc.ChangePassword(ctx, owner.ID, "wrong", "new password"); apperrors.LocalizationKey(err) != "error.accounts.wrong_password" {
		t.Fatalf("wrong current err = %v", err)
	}
	if err := svc.ChangePassword(ctx, owner.ID, "correct horse", "new password"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, _, err := svc.SignIn(ctx, "owner", "new password"); err != nil {
		t.Fatalf("sign in with new password: %v", err)
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	t.Parallel()
	svc, clock := newTestService(t)
	ctx := context.Background()
	signUp(t, svc, "owner")
	if _, _, err := svc.SignIn(ctx, "owner", "correct horse"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	purged, err := svc.PurgeExpiredSessions(ctx, clock.now.Add(2*time.Hour))
	if err != nil || purged != 1 {
		t.Fatalf("PurgeExpiredSessions() = %d, %v; want 1", purged, err)
	}
}
