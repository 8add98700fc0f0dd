package routepath

import "testing"

func TestBuildersEscapeSegments(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		Page("about"):                                  "/pages/about",
		Product("rice cake"):                           "/products/rice%20cake",
		Post("free", "p1"):                             "/boards/free/posts/p1",
		AppPostLike("p/1"):                             "/app/posts/p%2F1/like",
		AppCommentDelete("p1", "c1"):                   "/app/posts/p1/comments/c1/delete",
		AppPostNewOn("free talk"):                      "/app/posts/new?board=free+talk",
		AdminItem(AdminUsersPrefix, "u1", "/approve/"): "/admin/users/u1/approve",
		AdminItem(AdminBoardsPrefix, "b1", ""):         "/admin/boards/b1",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("route = %q, want %q", got, want)
		}
	}
}

func TestWithPage(t *testing.T) {
	t.Parallel()

	if got := WithPage("/boards/free", 1); got != "/boards/free" {
		t.Fatalf("page 1 = %q", got)
	}
	if got := WithPage("/boards/free?order=like_count", 3); got != "/boards/free?order=like_count&page=3" {
		t.Fatalf("page 3 = %q", got)
	}
}

func TestLoginNextRejectsOffsiteTargets(t *testing.T) {
	t.Parallel()

	if got := LoginNext("/app/scraps/"); got != "/login?next=%2Fapp%2Fscraps%2F" {
		t.Fatalf("local next = %q", got)
	}
	for _, target := range []string{"https://evil.example", "//evil.example", "/\\evil.example", ""} {
		if got := LoginNext(target); got != Login {
			t.Fatalf("LoginNext(%q) = %q, want %q", target, got, Login)
		}
	}
}
