// Package siteconfig manages the theme document and navigation menus that
// frame every rendered page.
package siteconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/louisbranch/folio/internal/platform/id"
	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/louisbranch/folio/internal/services/site/richtext"
	"github.com/louisbranch/folio/internal/services/site/storage"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ThemeKey is the settings key of the theme document.
const ThemeKey = "theme"

const maxLabelRunes = 40

// MenuNode is a top-level menu item and its children.
type MenuNode struct {
	Item     storage.MenuItem
	Children []storage.MenuItem
}

// Snapshot is everything the page chrome needs.
type Snapshot struct {
	Theme  Theme
	Header []MenuNode
	Footer []MenuNode
}

// Service owns theme and menu rules and caches the rendered snapshot.
type Service struct {
	store  storage.SiteConfigStore
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	cached *Snapshot
	gen    uint64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds a site configuration service.
func NewService(store storage.SiteConfigStore, opts ...Option) *Service {
	s := &Service{store: store, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ready() error {
	if s == nil || s.store == nil {
		return apperrors.E(apperrors.KindUnavailable, "site config store is not configured")
	}
	return nil
}

// Snapshot returns the cached theme and visible menus, loading them on
// first use or after a change. A load that overlaps an Invalidate is
// returned to its caller but never cached.
func (s *Service) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := s.ready(); err != nil {
		return Snapshot{Theme: DefaultTheme()}, err
	}
	s.mu.RLock()
	cached, gen := s.cached, s.gen
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	snap, err := s.load(ctx)
	if err != nil {
		return snap, err
	}
	s.mu.Lock()
	if s.gen == gen {
		s.cached = &snap
	}
	s.mu.Unlock()
	return snap, nil
}

func (s *Service) load(ctx context.Context) (Snapshot, error) {
	theme, err := s.LoadTheme(ctx)
	if err != nil {
		return Snapshot{Theme: DefaultTheme()}, err
	}
	header, err := s.ListMenu(ctx, storage.MenuHeader, true)
	if err != nil {
		return Snapshot{Theme: theme}, err
	}
	footer, err := s.ListMenu(ctx, storage.MenuFooter, true)
	if err != nil {
		return Snapshot{Theme: theme}, err
	}
	return Snapshot{Theme: theme, Header: header, Footer: footer}, nil
}

// Invalidate drops the cached snapshot and any load still in flight.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.gen++
	s.mu.Unlock()
}

// LoadTheme returns the stored theme, or the defaults when none is saved.
func (s *Service) LoadTheme(ctx context.Context) (Theme, error) {
	if err := s.ready(); err != nil {
		return DefaultTheme(), err
	}
	setting, err := s.store.GetSetting(ctx, ThemeKey)
	if errors.Is(err, storage.ErrNotFound) {
		return DefaultTheme(), nil
	}
	if err != nil {
		return DefaultTheme(), err
	}
	var theme Theme
	if err := json.Unmarshal([]byte(setting.Value), &theme); err != nil {
		s.logger.Warn("stored theme is unreadable, using defaults", zap.Error(err))
		return DefaultTheme(), nil
	}
	return theme.normalize(), nil
}

// SaveTheme validates and stores the theme.
func (s *Service) SaveTheme(ctx context.Context, theme Theme) (Theme, error) {
	if err := s.ready(); err != nil {
		return Theme{}, err
	}
	setting, theme, err := s.themeSetting(theme)
	if err != nil {
		return Theme{}, err
	}
	if err := s.store.PutSetting(ctx, setting); err != nil {
		return Theme{}, err
	}
	s.Invalidate()
	return theme, nil
}

func (s *Service) themeSetting(theme Theme) (storage.Setting, Theme, error) {
	theme = theme.normalize()
	if err := ValidateTheme(theme); err != nil {
		return storage.Setting{}, Theme{}, err
	}
	raw, err := json.Marshal(theme)
	if err != nil {
		return storage.Setting{}, Theme{}, fmt.Errorf("marshal theme: %w", err)
	}
	return storage.Setting{Key: ThemeKey, Value: string(raw), UpdatedAt: s.now().UTC()}, theme, nil
}

// ListMenu returns location's items as a two-level tree. When visibleOnly
// is set hidden items and the children of hidden parents are dropped.
func (s *Service) ListMenu(ctx context.Context, location string, visibleOnly bool) ([]MenuNode, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := validLocation(location); err != nil {
		return nil, err
	}
	items, err := s.store.ListMenuItems(ctx, location)
	if err != nil {
		return nil, err
	}
	return BuildTree(items, visibleOnly), nil
}

// BuildTree groups ordered items under their parents.
func BuildTree(items []storage.MenuItem, visibleOnly bool) []MenuNode {
	index := map[string]int{}
	var nodes []MenuNode
	for _, item := range items {
		if item.ParentID != "" || (visibleOnly && !item.Visible) {
			continue
		}
		index[item.ID] = len(nodes)
		nodes = append(nodes, MenuNode{Item: item})
	}
	for _, item := range items {
		if item.ParentID == "" || (visibleOnly && !item.Visible) {
			continue
		}
		if i, ok := index[item.ParentID]; ok {
			nodes[i].Children = append(nodes[i].Children, item)
		}
	}
	return nodes
}

// GetMenuItem returns one menu item.
func (s *Service) GetMenuItem(ctx context.Context, itemID string) (storage.MenuItem, error) {
	if err := s.ready(); err != nil {
		return storage.MenuItem{}, err
	}
	item, err := s.store.GetMenuItem(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return storage.MenuItem{}, notFound(err)
	}
	return item, nil
}

// MenuItemInput is the admin menu form.
type MenuItemInput struct {
	ID        string
	Location  string
	Label     string
	URL       string
	ParentID  string
	SortOrder int
	Visible   bool
}

// SaveMenuItem validates and stores a menu item. Menus nest two levels.
func (s *Service) SaveMenuItem(ctx context.Context, in MenuItemInput) (storage.MenuItem, error) {
	if err := s.ready(); err != nil {
		return storage.MenuItem{}, err
	}
	item, err := normalizeMenuItem(in)
	if err != nil {
		return storage.MenuItem{}, err
	}
	if item.ID == "" {
		newID, err := id.NewID()
		if err != nil {
			return storage.MenuItem{}, err
		}
		item.ID = newID
	} else if _, err := s.store.GetMenuItem(ctx, item.ID); err != nil {
		return storage.MenuItem{}, notFound(err)
	}
	if item.ParentID != "" {
		if err := s.checkParent(ctx, item); err != nil {
			return storage.MenuItem{}, err
		}
	}
	if err := s.store.PutMenuItem(ctx, item); err != nil {
		return storage.MenuItem{}, err
	}
	s.Invalidate()
	return item, nil
}

func (s *Service) checkParent(ctx context.Context, item storage.MenuItem) error {
	depthErr := apperrors.EK(apperrors.KindInvalidInput, "error.siteconfig.invalid_parent", "menus nest at most two levels")
	if item.ParentID == item.ID {
		return depthErr
	}
	parent, err := s.store.GetMenuItem(ctx, item.ParentID)
	if err != nil {
		return depthErr
	}
	if parent.ParentID != "" || parent.Location != item.Location {
		return depthErr
	}
	items, err := s.store.ListMenuItems(ctx, item.Location)
	if err != nil {
		return err
	}
	for _, other := range items {
		if other.ParentID == item.ID {
			return depthErr
		}
	}
	return nil
}

func normalizeMenuItem(in MenuItemInput) (storage.MenuItem, error) {
	item := storage.MenuItem{
		ID:        strings.TrimSpace(in.ID),
		Location:  strings.TrimSpace(in.Location),
		Label:     strings.TrimSpace(in.Label),
		URL:       strings.TrimSpace(in.URL),
		ParentID:  strings.TrimSpace(in.ParentID),
		SortOrder: in.SortOrder,
		Visible:   in.Visible,
	}
	if err := validLocation(item.Location); err != nil {
		return storage.MenuItem{}, err
	}
	if n := utf8.RuneCountInString(item.Label); n < 1 || n > maxLabelRunes {
		return storage.MenuItem{}, apperrors.EK(apperrors.KindInvalidInput, "error.siteconfig.invalid_label", "label must be 1-40 characters")
	}
	if !richtext.AllowedLinkURL(item.URL) {
		return storage.MenuItem{}, apperrors.EK(apperrors.KindInvalidInput, "error.siteconfig.invalid_url", "url must be a site path or an http(s) link")
	}
	return item, nil
}

func validLocation(location string) error {
	if location != storage.MenuHeader && location != storage.MenuFooter {
		return apperrors.EK(apperrors.KindInvalidInput, "error.siteconfig.invalid_location", "menu location must be header or footer")
	}
	return nil
}

// DeleteMenuItem removes an item and its children.
func (s *Service) DeleteMenuItem(ctx context.Context, itemID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.store.DeleteMenuItem(ctx, strings.TrimSpace(itemID)); err != nil {
		return notFound(err)
	}
	s.Invalidate()
	return nil
}

// ReorderMenu sets the sort order of itemIDs to their position.
func (s *Service) ReorderMenu(ctx context.Context, itemIDs []string) error {
	if err := s.ready(); err != nil {
		return err
	}
	var ids []string
	for _, itemID := range itemIDs {
		if itemID = strings.TrimSpace(itemID); itemID != "" {
			ids = append(ids, itemID)
		}
	}
	if err := s.store.ReorderMenuItems(ctx, ids); err != nil {
		return notFound(err)
	}
	s.Invalidate()
	return nil
}

type seedFile struct {
	Theme Theme                 `yaml:"theme"`
	Menus map[string][]seedItem `yaml:"menus"`
}

type seedItem struct {
	Label    string     `yaml:"label"`
	URL      string     `yaml:"url"`
	Hidden   bool       `yaml:"hidden"`
	Children []seedItem `yaml:"children"`
}

// ImportYAML replaces the theme and every menu from a seed document:
//
//	theme: {siteName: ..., primaryColor: ...}
//	menus:
//	  header: [{label: Shop, url: /products/, children: [...]}]
//	  footer: [...]
func (s *Service) ImportYAML(ctx context.Context, r io.Reader) error {
	if err := s.ready(); err != nil {
		return err
	}
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return apperrors.Wrap(apperrors.KindInvalidInput, "error.siteconfig.invalid_seed", fmt.Sprintf("parse seed: %v", err), err)
	}
	setting, _, err := s.themeSetting(seed.Theme)
	if err != nil {
		return err
	}
	var items []storage.MenuItem
	for location, entries := range seed.Menus {
		if err := validLocation(location); err != nil {
			return err
		}
		for i, entry := range entries {
			parent, err := seedMenuItem(location, "", i, entry)
			if err != nil {
				return err
			}
			items = append(items, parent)
			for j, child := range entry.Children {
				if len(child.Children) > 0 {
					return apperrors.EK(apperrors.KindInvalidInput, "error.siteconfig.invalid_parent", "menus nest at most two levels")
				}
				item, err := seedMenuItem(location, parent.ID, j, child)
				if err != nil {
					return err
				}
				items = append(items, item)
			}
		}
	}
	if err := s.store.ReplaceSiteConfig(ctx, setting, items); err != nil {
		return fmt.Errorf("replace site config: %w", err)
	}
	s.Invalidate()
	s.logger.Info("site config imported", zap.Int("menu_items", len(items)))
	return nil
}

func seedMenuItem(location string, parentID string, position int, entry seedItem) (storage.MenuItem, error) {
	item, err := normalizeMenuItem(MenuItemInput{
		Location:  location,
		Label:     entry.Label,
		URL:       entry.URL,
		ParentID:  parentID,
		SortOrder: position,
		Visible:   !entry.Hidden,
	})
	if err != nil {
		return storage.MenuItem{}, err
	}
	item.ID, err = id.NewID()
	return item, err
}

func notFound(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.KindNotFound, "error.siteconfig.not_found", "menu item not found", err)
	}
	return err
}
