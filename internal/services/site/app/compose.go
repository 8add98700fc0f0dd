// Package app composes site modules into the root HTTP handler and guards
// the member and admin route groups.
package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/louisbranch/folio/internal/services/site/module"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/platform/httpx"
	"github.com/louisbranch/folio/internal/services/site/platform/modulehandler"
	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
	"github.com/louisbranch/folio/internal/services/site/platform/sessioncookie"
	"github.com/louisbranch/folio/internal/services/site/routepath"
)

// ComposeInput carries module groups and shared composition contracts.
type ComposeInput struct {
	Dependencies  module.Dependencies
	PublicModules []module.Module
	MemberModules []module.Module
	AdminModules  []module.Module
}

type group int

const (
	groupPublic group = iota
	groupMember
	groupAdmin
)

func (g group) String() string {
	switch g {
	case groupMember:
		return "member"
	case groupAdmin:
		return "admin"
	default:
		return "public"
	}
}

// Composer wires root mux mounts and route-group access rules.
type Composer struct{}

// Compose builds a root HTTP handler from module groups. Every mutation
// that carries a session cookie must prove it came from this site.
func (Composer) Compose(input ComposeInput) (http.Handler, error) {
	root := http.NewServeMux()
	seen := make(map[string]string)
	guards := newGuards(input.Dependencies)

	groups := []struct {
		group   group
		modules []module.Module
		wrap    func(http.Handler) http.Handler
	}{
		{groupPublic, input.PublicModules, nil},
		{groupMember, input.MemberModules, guards.requireMember},
		{groupAdmin, input.AdminModules, guards.requireAdmin},
	}
	for _, g := range groups {
		for _, feature := range g.modules {
			if feature == nil {
				return nil, fmt.Errorf("%s module is nil", g.group)
			}
			if err := mountModule(root, feature, input.Dependencies, g.group, seen, g.wrap); err != nil {
				return nil, err
			}
		}
	}
	return requireSameOrigin(input.Dependencies.RequestPolicy)(root), nil
}

func mountModule(root *http.ServeMux, feature module.Module, deps module.Dependencies, g group, seen map[string]string, wrap func(http.Handler) http.Handler) error {
	mount, err := feature.Mount(deps)
	if err != nil {
		return fmt.Errorf("mount module %q: %w", feature.ID(), err)
	}
	if mount.Handler == nil {
		return fmt.Errorf("mount module %q: handler is required", feature.ID())
	}
	patterns, err := mountPatterns(feature.ID(), mount)
	if err != nil {
		return err
	}
	handler := mount.Handler
	if wrap != nil {
		handler = wrap(handler)
	}
	for _, pattern := range patterns {
		if err := checkGroup(feature.ID(), g, pattern); err != nil {
			return err
		}
		if previous, ok := seen[pattern]; ok {
			return fmt.Errorf("module %q duplicates route %q owned by module %q", feature.ID(), pattern, previous)
		}
		seen[pattern] = feature.ID()
		root.Handle(pattern, handler)
	}
	return nil
}

// mountPatterns lists the prefix and exact paths a mount claims.
func mountPatterns(id string, mount module.Mount) ([]string, error) {
	var patterns []string
	if prefix := strings.TrimSpace(mount.Prefix); prefix != "" {
		if !strings.HasPrefix(prefix, "/") || !strings.HasSuffix(prefix, "/") {
			return nil, fmt.Errorf("mount module %q: prefix %q must start and end with /", id, prefix)
		}
		patterns = append(patterns, prefix)
	}
	for _, path := range mount.Paths {
		path = strings.TrimSpace(path)
		if !strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
			return nil, fmt.Errorf("mount module %q: path %q must start with / and name one route", id, path)
		}
		patterns = append(patterns, path)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("mount module %q: prefix or paths are required", id)
	}
	return patterns, nil
}

func checkGroup(id string, g group, pattern string) error {
	member := strings.HasPrefix(pattern, routepath.AppPrefix)
	admin := strings.HasPrefix(pattern, routepath.AdminPrefix)
	switch g {
	case groupMember:
		if !member {
			return fmt.Errorf("member module %q must mount under %s, got %q", id, routepath.AppPrefix, pattern)
		}
	case groupAdmin:
		if !admin {
			return fmt.Errorf("admin module %q must mount under %s, got %q", id, routepath.AdminPrefix, pattern)
		}
	default:
		if member || admin {
			return fmt.Errorf("public module %q claims protected route %q", id, pattern)
		}
	}
	return nil
}

type guards struct {
	viewer module.ResolveViewer
	base   modulehandler.Base
}

func newGuards(deps module.Dependencies) guards {
	viewer := deps.ResolveViewer
	if viewer == nil {
		viewer = func(*http.Request) module.Viewer { return module.Viewer{} }
	}
	return guards{viewer: viewer, base: modulehandler.NewBase(deps)}
}

// requireMember sends anonymous visitors to the login page. Only
// approved users ever resolve as signed in.
func (g guards) requireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.viewer(r).SignedIn {
			g.toLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g guards) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewer := g.viewer(r)
		if !viewer.SignedIn {
			g.toLogin(w, r)
			return
		}
		if !viewer.IsAdmin {
			g.base.WriteError(w, r, apperrors.EK(apperrors.KindForbidden, "error.forbidden", "admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g guards) toLogin(w http.ResponseWriter, r *http.Request) {
	target := routepath.Login
	if r.Method == http.MethodGet {
		target = routepath.LoginNext(r.URL.RequestURI())
	}
	httpx.WriteRedirect(w, r, target)
}

func requireSameOrigin(policy requestmeta.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutationMethod(r.Method) || !hasSessionCookie(r) || requestmeta.HasSameOriginProof(r, policy) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.WriteError(w, apperrors.E(apperrors.KindForbidden, "mutation without same-origin proof"))
		})
	}
}

func isMutationMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func hasSessionCookie(r *http.Request) bool {
	_, ok := sessioncookie.Read(r)
	return ok
}
