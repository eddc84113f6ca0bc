package appupdate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestStableVersion(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"v1.2.3", "v1.2.3"},
		{"1.2.3", "v1.2.3"},
		{" v0.4.0 ", "v0.4.0"},
		{"v1.2.3-rc.1", ""},
		{"v0.4.0-11-g0aa98a4-dirty", ""},
		{"dev", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stableVersion(tt.in); got != tt.want {
			t.Errorf("stableVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectInstallMethod(t *testing.T) {
	t.Setenv("GOBIN", "")
	tests := []struct {
		path string
		want InstallMethod
	}{
		{"/opt/homebrew/cellar/calgrid/1.2.3/bin/calgrid", InstallHomebrew},
		{"/users/test/go/bin/calgrid", InstallGoInstall},
		{"/tmp/calgrid", InstallUnknown},
		{"", InstallUnknown},
	}
	for _, tt := range tests {
		if got := detectInstallMethod(tt.path); got != tt.want {
			t.Errorf("detectInstallMethod(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func releaseServer(t *testing.T, tag string, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name":"` + tag + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckReportsNewerRelease(t *testing.T) {
	srv := releaseServer(t, "v1.3.0", nil)
	res, err := Check(context.Background(), Options{
		CurrentVersion: "v1.2.0",
		ExecutablePath: "/opt/homebrew/Cellar/calgrid/1.2.0/bin/calgrid",
		ReleaseURL:     srv.URL,
		HTTPClient:     srv.Client(),
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.UpdateAvailable || res.Latest != "v1.3.0" {
		t.Fatalf("result = %+v, want update to v1.3.0", res)
	}
	if res.Hint != homebrewUpgrade {
		t.Fatalf("Hint = %q", res.Hint)
	}
}

func TestCheckUpToDate(t *testing.T) {
	srv := releaseServer(t, "1.2.0", nil)
	res, err := Check(context.Background(), Options{
		CurrentVersion: "v1.2.0",
		ExecutablePath: "/tmp/calgrid",
		ReleaseURL:     srv.URL,
		HTTPClient:     srv.Client(),
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.UpdateAvailable {
		t.Fatalf("result = %+v, want no update", res)
	}
}

func TestCheckSkipsDevBuilds(t *testing.T) {
	var hits atomic.Int32
	srv := releaseServer(t, "v9.0.0", &hits)
	res, err := Check(context.Background(), Options{
		CurrentVersion: "dev",
		ExecutablePath: "/tmp/calgrid",
		ReleaseURL:     srv.URL,
		HTTPClient:     srv.Client(),
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.UpdateAvailable || hits.Load() != 0 {
		t.Fatalf("dev build checked for updates: %+v hits=%d", res, hits.Load())
	}
}

func TestCheckRejectsPrereleaseTag(t *testing.T) {
	srv := releaseServer(t, "v2.0.0-beta.1", nil)
	_, err := Check(context.Background(), Options{
		CurrentVersion: "v1.0.0",
		ExecutablePath: "/tmp/calgrid",
		ReleaseURL:     srv.URL,
		HTTPClient:     srv.Client(),
	})
	if err == nil {
		t.Fatal("expected error for prerelease latest tag")
	}
}

func TestCheckHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	if _, err := Check(context.Background(), Options{
		CurrentVersion: "v1.0.0",
		ExecutablePath: "/tmp/calgrid",
		ReleaseURL:     srv.URL,
		HTTPClient:     srv.Client(),
	}); err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}
