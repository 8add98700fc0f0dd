// Package routepath stores canonical HTTP paths for site modules.
package routepath

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	Root          = "/"
	Health        = "/up"
	Login         = "/login"
	Signup        = "/signup"
	Logout        = "/logout"
	Pending       = "/pending"
	Sitemap       = "/sitemap.xml"
	Robots        = "/robots.txt"
	StaticPrefix  = "/static/"
	UploadsPrefix = "/uploads/"

	PagesPrefix    = "/pages/"
	ProductsPrefix = "/products/"
	BoardsPrefix   = "/boards/"
	PreviewPrefix  = "/preview/"

	AppPrefix          = "/app/"
	AppPostsPrefix     = "/app/posts/"
	AppPostNew         = "/app/posts/new"
	AppScrapsPrefix    = "/app/scraps/"
	AppAccountPrefix   = "/app/account/"
	AppAccountPassword = "/app/account/password"
	AppUploadsPrefix   = "/app/uploads/"

	AdminPrefix           = "/admin/"
	AdminUsersPrefix      = "/admin/users/"
	AdminCatalogPrefix    = "/admin/catalog/"
	AdminCategoriesPrefix = "/admin/catalog/categories/"
	AdminProductsPrefix   = "/admin/catalog/products/"
	AdminContentPrefix    = "/admin/content/"
	AdminBoardsPrefix     = "/admin/boards/"
	AdminSitePrefix       = "/admin/site/"
	AdminTheme            = "/admin/site/theme"
	AdminMenusPrefix      = "/admin/site/menus/"
	AdminUploadsPrefix    = "/admin/uploads/"
	AdminOrphansPrefix    = "/admin/orphans/"
	AdminIndexNowPrefix   = "/admin/indexnow/"
)

// Page returns the public route of a content entry.
func Page(slug string) string {
	return PagesPrefix + escapeSegment(slug)
}

// Product returns the public route of a product.
func Product(slug string) string {
	return ProductsPrefix + escapeSegment(slug)
}

// Board returns the public route of a board.
func Board(slug string) string {
	return BoardsPrefix + escapeSegment(slug)
}

// Post returns the public route of a post.
func Post(boardSlug string, postID string) string {
	return Board(boardSlug) + "/posts/" + escapeSegment(postID)
}

// AppPost returns the base member route for one post.
func AppPost(postID string) string {
	return AppPostsPrefix + escapeSegment(postID)
}

// AppPostEdit returns the edit form route for a post.
func AppPostEdit(postID string) string {
	return AppPost(postID) + "/edit"
}

// AppPostDelete returns the delete route for a post.
func AppPostDelete(postID string) string {
	return AppPost(postID) + "/delete"
}

// AppPostComments returns the comment create route for a post.
func AppPostComments(postID string) string {
	return AppPost(postID) + "/comments"
}

// AppCommentDelete returns the delete route for a comment.
func AppCommentDelete(postID string, commentID string) string {
	return AppPostComments(postID) + "/" + escapeSegment(commentID) + "/delete"
}

// AppPostLike returns the like toggle route.
func AppPostLike(postID string) string {
	return AppPost(postID) + "/like"
}

// AppPostScrap returns the scrap toggle route.
func AppPostScrap(postID string) string {
	return AppPost(postID) + "/scrap"
}

// AppPostNewOn returns the write form for a board.
func AppPostNewOn(boardSlug string) string {
	return AppPostNew + "?board=" + url.QueryEscape(boardSlug)
}

// AdminItem returns prefix joined with an escaped id and optional action.
func AdminItem(prefix string, itemID string, action string) string {
	out := prefix + escapeSegment(itemID)
	if action = strings.Trim(action, "/"); action != "" {
		out += "/" + action
	}
	return out
}

// WithPage appends a page query to path.
func WithPage(path string, page int) string {
	if page <= 1 {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "page=" + strconv.Itoa(page)
}

// LoginNext returns a login route that returns to target afterwards.
func LoginNext(target string) string {
	if !IsLocal(target) {
		return Login
	}
	return Login + "?next=" + url.QueryEscape(target)
}

// IsLocal reports whether target is a same-site absolute path.
func IsLocal(target string) bool {
	target = strings.TrimSpace(target)
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\")
}

func escapeSegment(raw string) string {
	return url.PathEscape(strings.TrimSpace(raw))
}

