package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeAPI — минимальный сервер с ответами в формате kycdoc API.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	apiError := func(w http.ResponseWriter, status int, code, msg string) {
		writeJSON(w, status, map[string]any{"error": map[string]string{"code": code, "message": msg}})
	}
	requireToken := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			apiError(w, http.StatusUnauthorized, "UNAUTHORIZED", "access token required")
			return false
		}
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/admin/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "admin123" {
			apiError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{
			"token": "good-token", "username": req["username"], "expiresAt": "2030-01-01T00:00:00Z",
		}})
	})
	mux.HandleFunc("GET /api/admin/applications", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		apps := []map[string]any{
			{"id": "a1", "fullName": "Jane Doe", "status": r.URL.Query().Get("status")},
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": apps, "total": 1})
	})
	mux.HandleFunc("PUT /api/admin/applications/{id}/approved", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		if r.PathValue("id") == "offline" {
			apiError(w, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "queued later")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"message":     "approved",
			"application": map[string]any{"id": r.PathValue("id"), "status": "approved"},
		}})
	})
	mux.HandleFunc("GET /api/admin/applications/{id}/document", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{
			"applicationId": r.PathValue("id"), "state": "complete", "locator": "pdfs/kyc.pdf",
		}})
	})
	mux.HandleFunc("GET /api/admin/applications/{id}/pdf", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		switch r.PathValue("id") {
		case "pending":
			writeJSON(w, http.StatusAccepted, map[string]any{"data": map[string]string{"state": "pending"}})
		case "rejected":
			apiError(w, http.StatusBadRequest, "NOT_APPROVED", "application not approved yet")
		default:
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.3 body"))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testOutput(jsonMode bool) (*Output, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Output{jsonMode: jsonMode, w: &stdout, errW: &stderr}, &stdout, &stderr
}

// --- Client ---

func TestClient_Login(t *testing.T) {
	srv := fakeAPI(t)
	c := NewClient(srv.URL, "")

	res, err := c.Login("admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token != "good-token" || res.Username != "admin" {
		t.Errorf("unexpected response: %+v", res)
	}

	_, err = c.Login("admin", "wrong")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func TestClient_ListApplications(t *testing.T) {
	srv := fakeAPI(t)

	if _, err := NewClient(srv.URL, "").ListApplications(ListApplicationsOpts{}); err == nil {
		t.Error("expected error without token")
	}

	apps, err := NewClient(srv.URL, "good-token").ListApplications(ListApplicationsOpts{Status: "pending", Limit: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(apps) != 1 || apps[0].Status != "pending" {
		t.Errorf("unexpected apps: %+v", apps)
	}
}

func TestClient_DownloadDocument(t *testing.T) {
	srv := fakeAPI(t)
	c := NewClient(srv.URL, "good-token")

	var buf bytes.Buffer
	n, err := c.DownloadDocument("a1", &buf)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if n != int64(buf.Len()) || buf.String() != "%PDF-1.3 body" {
		t.Errorf("unexpected body %q (n=%d)", buf.String(), n)
	}

	if _, err := c.DownloadDocument("pending", &buf); !errors.Is(err, ErrDocumentPending) {
		t.Errorf("expected ErrDocumentPending, got %v", err)
	}

	_, err = c.DownloadDocument("rejected", &buf)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "NOT_APPROVED" {
		t.Errorf("expected NOT_APPROVED, got %v", err)
	}
}

// --- Token ---

func TestToken_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")

	tok, err := LoadToken(path)
	if err != nil || tok != "" {
		t.Fatalf("missing file: expected empty token, got %q, %v", tok, err)
	}

	if err := SaveToken(path, "abc"); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600, got %v", info.Mode().Perm())
	}

	tok, err = LoadToken(path)
	if err != nil || tok != "abc" {
		t.Errorf("expected abc, got %q, %v", tok, err)
	}
}

// --- Commands ---

func TestLoginCmd_SavesToken(t *testing.T) {
	srv := fakeAPI(t)
	out, _, stderr := testOutput(false)
	path := filepath.Join(t.TempDir(), "token")

	cmd := NewLoginCmd(
		func() *Client { return NewClient(srv.URL, "") },
		func() *Output { return out },
		func() string { return path },
	)
	cmd.SetArgs([]string{"--password", "admin123"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	tok, _ := LoadToken(path)
	if tok != "good-token" {
		t.Errorf("token not saved, got %q", tok)
	}
	if !strings.Contains(stderr.String(), "Logged in as admin") {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
}

func TestApproveCmd_QueueUnavailableIsWarning(t *testing.T) {
	srv := fakeAPI(t)
	out, _, stderr := testOutput(false)

	cmd := NewApplicationsCmd(
		func() *Client { return NewClient(srv.URL, "good-token") },
		func() *Output { return out },
	)
	cmd.SetArgs([]string{"approve", "offline"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(stderr.String(), "queued later") {
		t.Errorf("expected warning, got %q", stderr.String())
	}
}

func TestStatusCmd_JSON(t *testing.T) {
	srv := fakeAPI(t)
	out, stdout, _ := testOutput(true)

	cmd := NewApplicationsCmd(
		func() *Client { return NewClient(srv.URL, "good-token") },
		func() *Output { return out },
	)
	cmd.SetArgs([]string{"status", "a1"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var res DocumentStatusResponse
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if res.State != "complete" || res.ApplicationID != "a1" {
		t.Errorf("unexpected output: %+v", res)
	}
}

func TestDownloadCmd_WritesFile(t *testing.T) {
	srv := fakeAPI(t)
	out, _, _ := testOutput(false)
	target := filepath.Join(t.TempDir(), "doc.pdf")

	cmd := NewApplicationsCmd(
		func() *Client { return NewClient(srv.URL, "good-token") },
		func() *Output { return out },
	)
	cmd.SetArgs([]string{"download", "a1", "-o", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "%PDF-1.3 body" {
		t.Errorf("unexpected content %q", data)
	}
}
