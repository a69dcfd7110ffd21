package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"animetrack/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	tests := []struct {
		path string
		pass bool
	}{
		{"/", true},
		{"/missing", true},
		{"/broken", false},
	}
	for _, tc := range tests {
		result := CheckEndpoint(context.Background(), srv.Client(), "test", srv.URL+tc.path)
		if result.Passed != tc.pass {
			t.Fatalf("%s: expected pass=%v, got %+v", tc.path, tc.pass, result)
		}
	}

	if result := CheckEndpoint(context.Background(), srv.Client(), "test", ""); result.Passed {
		t.Fatal("expected failure for missing url")
	}
}

func TestCheckNtfyUsesHealthEndpoint(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"healthy":true}`))
	}))
	defer srv.Close()

	result := CheckNtfy(context.Background(), srv.Client(), srv.URL+"/anime-alerts")
	if !result.Passed {
		t.Fatalf("expected pass, got %+v", result)
	}
	if gotPath != "/v1/health" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}

func TestRunAllSkipsNtfyWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithScheduleURL(srv.URL), testsupport.WithEpisodeSite(srv.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 checks without ntfy, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}

	cfg.Notifications.NtfyTopic = srv.URL + "/topic"
	if results := RunAll(context.Background(), cfg); len(results) != 6 {
		t.Fatalf("expected ntfy check when a topic is set, got %d", len(results))
	}
}
