package uploads

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/louisbranch/folio/internal/services/site/sitetest"
	"github.com/louisbranch/folio/internal/services/site/storage"
)

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = part.Write(content)
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, h http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/app/uploads/", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestUploadReturnsURL(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	member := env.User(t, "alice", storage.RoleMember)
	mnt, err := New(env.Uploads).Mount(sitetest.Deps(member))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
	rr := upload(t, mnt.Handler, "dot.gif", gif)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var got struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(got.URL, "/uploads/2026/04/") || !strings.HasSuffix(got.URL, ".gif") {
		t.Fatalf("url = %q", got.URL)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	t.Parallel()

	env := sitetest.New(t)
	member := env.User(t, "alice", storage.RoleMember)
	mnt, err := New(env.Uploads).Mount(sitetest.Deps(member))
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	rr := upload(t, mnt.Handler, "notes.txt", []byte("just text"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"error"`) {
		t.Fatalf("body = %s", rr.Body.String())
	}
}
