package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/cbl/internal/docservice"
	"github.com/starford/cbl/internal/testutil"
)

// testEnv sets up a temp object store, SQLite DB, service, and router for testing.
// An empty authToken means disabled mode; a non-empty token means token mode.
func testEnv(t *testing.T, authToken string) (*docservice.Service, http.Handler) {
	t.Helper()
	return testEnvFull(t, authToken != "", authToken, nil)
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*docservice.Service, http.Handler) {
	t.Helper()
	_, store := testutil.TestStore(t)
	db := testutil.TestDB(t)

	svc := docservice.New(store, db, docservice.Settings{Sections: []string{"Overview", "API"}})
	router := NewRouter(svc, authEnabled, authToken, sseHandler)
	return svc, router
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seed(t *testing.T, router http.Handler) {
	t.Helper()
	if w := do(t, router, http.MethodPost, "/projects", CreateProjectRequest{Name: "docs"}); w.Code != http.StatusCreated {
		t.Fatalf("create project = %d, body = %s", w.Code, w.Body.String())
	}
	for _, req := range []AddObjectRequest{
		{Name: "intro", Version: "1.0.0", Section: "Overview", Content: "Hello"},
		{Name: "intro", Version: "2.0.0", Section: "Overview", Content: "Hello v2"},
		{Name: "auth", Version: "1.1.0", Section: "API", Audience: "dev", Content: "# Auth\nTokens"},
	} {
		if w := do(t, router, http.MethodPost, "/projects/docs/objects", req); w.Code != http.StatusCreated {
			t.Fatalf("add %s = %d, body = %s", req.Name, w.Code, w.Body.String())
		}
	}
}

func TestCreateAndListProjects(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/projects", CreateProjectRequest{Name: "docs", Description: "Product docs"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var p Project
	_ = json.Unmarshal(w.Body.Bytes(), &p)
	if p.Name != "docs" || p.ID == 0 {
		t.Errorf("project = %+v", p)
	}

	w = do(t, router, http.MethodGet, "/projects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp ProjectListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Projects) != 1 || resp.Projects[0].Description != "Product docs" {
		t.Errorf("projects = %+v", resp.Projects)
	}
}

func TestCreateProject_Duplicate(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodPost, "/projects", CreateProjectRequest{Name: "dup"}); w.Code != http.StatusCreated {
		t.Fatalf("first create = %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, "/projects", CreateProjectRequest{Name: "dup"}); w.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d, want 409", w.Code)
	}
}

func TestCreateProject_BadBody(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}

	if w := do(t, router, http.MethodPost, "/projects", CreateProjectRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("empty name = %d, want 400", w.Code)
	}
}

func TestListProjects_EmptyIsArray(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/projects", nil)
	if !strings.Contains(w.Body.String(), `"projects":[]`) {
		t.Errorf("body = %s, want empty array", w.Body.String())
	}
}

func TestAddAndListObjects(t *testing.T) {
	_, router := testEnv(t, "")
	seed(t, router)

	w := do(t, router, http.MethodGet, "/projects/docs/objects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp ObjectListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Objects) != 3 {
		t.Fatalf("objects = %d, want 3", len(resp.Objects))
	}
	got := []string{}
	for _, o := range resp.Objects {
		got = append(got, o.Name+"@"+o.Version)
	}
	want := "auth@1.1.0,intro@1.0.0,intro@2.0.0"
	if strings.Join(got, ",") != want {
		t.Errorf("order = %v, want %s", got, want)
	}
}

func TestAddObject_Errors(t *testing.T) {
	_, router := testEnv(t, "")
	seed(t, router)

	cases := []struct {
		name   string
		target string
		body   AddObjectRequest
		want   int
	}{
		{"bad version", "/projects/docs/objects", AddObjectRequest{Name: "x", Version: "1.0", Content: "x"}, http.StatusBadRequest},
		{"missing name", "/projects/docs/objects", AddObjectRequest{Version: "1.0.0", Content: "x"}, http.StatusBadRequest},
		{"unknown project", "/projects/ghost/objects", AddObjectRequest{Name: "x", Version: "1.0.0", Content: "x"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(t, router, http.MethodPost, tc.target, tc.body); w.Code != tc.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestListObjects_UnknownProject(t *testing.T) {
	_, router := testEnv(t, "")

	if w := do(t, router, http.MethodGet, "/projects/ghost/objects", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing project = %d, want 404", w.Code)
	}
}

func TestShowVersion(t *testing.T) {
	_, router := testEnv(t, "")
	seed(t, router)

	w := do(t, router, http.MethodGet, "/projects/docs/versions/1.5.0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("show status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ResolveResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Sections) != 2 {
		t.Fatalf("sections = %+v", resp.Sections)
	}
	if resp.Sections[0].Label != "Overview" || resp.Sections[0].Entries[0].Preview != "Hello" {
		t.Errorf("overview = %+v", resp.Sections[0])
	}
	if resp.Sections[1].Label != "API" || resp.Sections[1].Entries[0].Preview != "# Auth" {
		t.Errorf("api = %+v", resp.Sections[1])
	}

	w = do(t, router, http.MethodGet, "/projects/docs/versions/1.5.0?level=dev", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Sections) != 1 || resp.Level != "dev" {
		t.Errorf("dev level = %+v", resp)
	}
}

func TestDocument_MissingContentIsInternalError(t *testing.T) {
	dir, store := testutil.TestStore(t)
	svc := docservice.New(store, testutil.TestDB(t), docservice.Settings{})
	router := NewRouter(svc, false, "", nil)

	ctx := context.Background()
	if _, err := svc.Init(ctx, "docs", ""); err != nil {
		t.Fatal(err)
	}
	added, err := svc.Add(ctx, docservice.AddInput{Project: "docs", Name: "intro", Version: "1.0.0", Content: []byte("Hello\n")})
	if err != nil {
		t.Fatal(err)
	}
	d := added.Record.Digest
	if err := os.Remove(filepath.Join(dir, d[:2], d[2:])); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodGet, "/projects/docs/versions/1.0.0/document", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("missing blob = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "stored content missing") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestShowVersion_InvalidVersion(t *testing.T) {
	_, router := testEnv(t, "")
	seed(t, router)

	if w := do(t, router, http.MethodGet, "/projects/docs/versions/latest", nil); w.Code != http.StatusBadRequest {
		t.Errorf("invalid version = %d, want 400", w.Code)
	}
}

func TestDocument(t *testing.T) {
	_, router := testEnv(t, "")
	seed(t, router)

	w := do(t, router, http.MethodGet, "/projects/docs/versions/2.0.0/document", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("document status = %d, body = %s", w.Code, w.Body.String())
	}
	want := "## Overview\n\nHello v2\n\n## API\n\n# Auth\nTokens\n"
	if got := w.Body.String(); got != want {
		t.Errorf("document = %q, want %q", got, want)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("content type = %q", ct)
	}

	w = do(t, router, http.MethodGet, "/projects/docs/versions/2.0.0/document?format=html", nil)
	if !strings.Contains(w.Body.String(), "<h2>Overview</h2>") {
		t.Errorf("html = %q", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/projects/docs/versions/2.0.0/document?format=pdf", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad format = %d, want 400", w.Code)
	}
}

func TestUploadObject(t *testing.T) {
	svc, router := testEnv(t, "")
	seed(t, router)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("version", "1.2.0")
	_ = mw.WriteField("section", "API")
	part, err := mw.CreateFormFile("file", "errors.md")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("# Errors\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/projects/docs/objects/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}

	var added Added
	_ = json.Unmarshal(w.Body.Bytes(), &added)
	if added.Record.Name != "errors" {
		t.Errorf("name = %q, want errors", added.Record.Name)
	}
	data, err := svc.Content(context.Background(), added.Record.Digest)
	if err != nil || string(data) != "# Errors\n" {
		t.Errorf("stored content = %q, %v", data, err)
	}
}

func TestUploadObject_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")
	seed(t, router)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/projects/docs/objects/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(CreateProjectRequest{Name: "docs"})
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
	if got, want := w.Header().Get("WWW-Authenticate"), `Bearer realm="cbl"`; got != want {
		t.Errorf("challenge = %q, want %q", got, want)
	}
}

func TestAuthMiddleware_SchemeCaseInsensitive(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("lowercase scheme = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes headers and blocks until the request context is done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvFull(t, true, "secret", sseStub)

	// No token → 401.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	_, router := testEnvFull(t, false, "", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvFull(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
