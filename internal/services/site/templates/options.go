package templates

import (
	"strconv"

	"github.com/louisbranch/folio/internal/services/site/domain/siteconfig"
	"github.com/louisbranch/folio/internal/services/site/routepath"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

type dashboardStat struct {
	Href  string
	Key   string
	Count int
}

func dashboardStats(view DashboardView) []dashboardStat {
	return []dashboardStat{
		{routepath.AdminUsersPrefix + "?status=" + storage.UserStatusPending, "admin.dashboard.pending_users", view.PendingUsers},
		{routepath.AdminUsersPrefix, "admin.dashboard.users", view.Users},
		{routepath.AdminCatalogPrefix, "admin.dashboard.products", view.Products},
		{routepath.AdminContentPrefix, "admin.dashboard.entries", view.Entries},
		{routepath.AdminBoardsPrefix, "admin.dashboard.posts", view.Posts},
		{routepath.AdminUploadsPrefix, "admin.dashboard.uploads", view.Uploads},
	}
}

var userStatusFilters = []string{"", storage.UserStatusPending, storage.UserStatusApproved, storage.UserStatusRejected, storage.UserStatusSuspended}

func userFilterPath(status string) string {
	if status == "" {
		return routepath.AdminUsersPrefix
	}
	return routepath.AdminUsersPrefix + "?status=" + status
}

func userFilterKey(status string) string {
	if status == "" {
		return "admin.users.filter_all"
	}
	return "admin.users.status_" + status
}

// roleChange is the role an approved user can be switched to.
func roleChange(u storage.User) (role string, key string) {
	if u.Role == storage.RoleAdmin {
		return storage.RoleMember, "admin.users.make_member"
	}
	return storage.RoleAdmin, "admin.users.make_admin"
}

func pinAction(p storage.Post) (action string, key string) {
	if p.Pinned {
		return "unpin", "admin.boards.unpin"
	}
	return "pin", "admin.boards.pin"
}

func visibilityKey(b storage.Board) string {
	if b.Hidden {
		return "admin.boards.hidden"
	}
	return "admin.boards.visible"
}

func submissionStatus(s storage.Submission) string {
	if s.StatusCode <= 0 {
		return ""
	}
	return strconv.Itoa(s.StatusCode)
}

func statusOptions(loc Localizer) []option {
	return []option{
		{Value: storage.StatusDraft, Label: T(loc, "admin.common.status_draft")},
		{Value: storage.StatusPublished, Label: T(loc, "admin.common.status_published")},
	}
}

func boardOptions(boards []storage.Board) []option {
	options := make([]option, 0, len(boards))
	for _, b := range boards {
		options = append(options, option{Value: b.ID, Label: b.Name})
	}
	return options
}

func categoryOptions(categories []storage.Category) []option {
	options := make([]option, 0, len(categories))
	for _, c := range categories {
		options = append(options, option{Value: c.ID, Label: c.Name})
	}
	return options
}

func formatOptions(loc Localizer) []option {
	return []option{
		{Value: storage.FormatMarkdown, Label: T(loc, "admin.content.format_markdown")},
		{Value: storage.FormatRichText, Label: T(loc, "admin.content.format_richtext")},
	}
}

func entryFormat(input string) string {
	if input == "" {
		return storage.FormatMarkdown
	}
	return input
}

func roleOptions(loc Localizer) []option {
	return []option{
		{Value: storage.RoleMember, Label: T(loc, "member.role.member")},
		{Value: storage.RoleAdmin, Label: T(loc, "member.role.admin")},
	}
}

func writeRole(input string) string {
	if input == "" {
		return storage.RoleMember
	}
	return input
}

func localeOptions(loc Localizer) []option {
	return []option{
		{Value: "", Label: T(loc, "admin.site.locale_auto")},
		{Value: "en-US", Label: "English"},
		{Value: "ko-KR", Label: "한국어"},
	}
}

func parentOptions(loc Localizer, view MenuItemFormView) []option {
	options := []option{{Value: "", Label: T(loc, "admin.site.top_level")}}
	for _, p := range view.Parents {
		if p.ID == view.Input.ID {
			continue
		}
		options = append(options, option{Value: p.ID, Label: p.Label})
	}
	return options
}

type menuSection struct {
	Location string
	Key      string
	Nodes    []siteconfig.MenuNode
}

func menuSections(view SiteView) []menuSection {
	return []menuSection{
		{storage.MenuHeader, "admin.site.header_menu", view.Header},
		{storage.MenuFooter, "admin.site.footer_menu", view.Footer},
	}
}

func menuRoots(nodes []siteconfig.MenuNode) []storage.MenuItem {
	roots := make([]storage.MenuItem, 0, len(nodes))
	for _, n := range nodes {
		roots = append(roots, n.Item)
	}
	return roots
}

// swapped returns the sibling ids with positions i and j exchanged.
func swapped(items []storage.MenuItem, i int, j int) []string {
	ids := make([]string, len(items))
	for k, item := range items {
		ids[k] = item.ID
	}
	ids[i], ids[j] = ids[j], ids[i]
	return ids
}
