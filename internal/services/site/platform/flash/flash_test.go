package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/folio/internal/services/site/platform/requestmeta"
)

func TestWriteThenReadAndClear(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/admin/products", nil)
	writeRR := httptest.NewRecorder()
	Write(writeRR, req, Success("notice.product_saved", "Mug"), requestmeta.Policy{})
	cookies := writeRR.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	req.AddCookie(cookies[0])

	readRR := httptest.NewRecorder()
	notice, ok := ReadAndClear(readRR, req, requestmeta.Policy{})
	if !ok {
		t.Fatal("ReadAndClear() ok = false, want true")
	}
	want := Notice{Kind: KindSuccess, Key: "notice.product_saved", Args: []string{"Mug"}}
	if diff := cmp.Diff(want, notice); diff != "" {
		t.Fatalf("notice mismatch (-want +got):\n%s", diff)
	}
	if readRR.Header().Get("Set-Cookie") == "" {
		t.Fatal("expected clear Set-Cookie header")
	}
}

func TestReadAndClearInvalidValueStillClears(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "%%%"})
	rr := httptest.NewRecorder()
	if _, ok := ReadAndClear(rr, req, requestmeta.Policy{}); ok {
		t.Fatal("ReadAndClear() ok = true, want false")
	}
	if rr.Header().Get("Set-Cookie") == "" {
		t.Fatal("expected clear Set-Cookie header")
	}
}

func TestWriteDropsInvalidNotice(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	Write(rr, req, Notice{Kind: "loud", Key: "notice.x"}, requestmeta.Policy{})
	Write(rr, req, Notice{Kind: KindInfo}, requestmeta.Policy{})
	if got := rr.Header().Get("Set-Cookie"); got != "" {
		t.Fatalf("Set-Cookie = %q, want empty", got)
	}
}
