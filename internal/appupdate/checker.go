// Package appupdate compares the running build against the latest published
// release and suggests how to upgrade.
package appupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	binaryName       = "calgrid"
	latestReleaseURL = "https://api.github.com/repos/janekbaraniewski/calgrid/releases/latest"
	requestTimeout   = 2 * time.Second
	goInstallUpgrade = "go install github.com/janekbaraniewski/calgrid/cmd/calgrid@latest"
	homebrewUpgrade  = "brew upgrade janekbaraniewski/tap/calgrid"
	releasesPageHint = "download the latest release from https://github.com/janekbaraniewski/calgrid/releases"
)

type InstallMethod string

const (
	InstallUnknown   InstallMethod = "unknown"
	InstallHomebrew  InstallMethod = "homebrew"
	InstallGoInstall InstallMethod = "go_install"
)

type Options struct {
	CurrentVersion string
	ExecutablePath string // empty resolves os.Executable
	ReleaseURL     string
	HTTPClient     *http.Client
}

type Result struct {
	Current         string
	Latest          string
	UpdateAvailable bool
	Method          InstallMethod
	Hint            string
}

// Check fetches the latest release tag. Builds without a stable semver
// version (dev, snapshots, prereleases) never report an update and make no
// request.
func Check(ctx context.Context, opts Options) (Result, error) {
	method := detectInstallMethod(executablePath(opts.ExecutablePath))
	res := Result{
		Current: stableVersion(opts.CurrentVersion),
		Method:  method,
		Hint:    upgradeHint(method),
	}
	if res.Current == "" {
		return res, nil
	}

	latest, err := fetchLatest(ctx, opts)
	if err != nil {
		return res, err
	}
	res.Latest = latest
	res.UpdateAvailable = semver.Compare(latest, res.Current) > 0
	return res, nil
}

func fetchLatest(ctx context.Context, opts Options) (string, error) {
	url := strings.TrimSpace(opts.ReleaseURL)
	if url == "" {
		url = latestReleaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("appupdate: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", binaryName+"/"+opts.CurrentVersion)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("appupdate: fetch latest release: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("appupdate: fetch latest release: HTTP %d", resp.StatusCode)
	}

	var payload struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("appupdate: decode release: %w", err)
	}
	latest := stableVersion(payload.TagName)
	if latest == "" {
		return "", fmt.Errorf("appupdate: release tag %q is not a stable version", payload.TagName)
	}
	return latest, nil
}

// stableVersion canonicalizes "1.2.3" or "v1.2.3" and rejects prereleases.
func stableVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" || semver.Build(v) != "" {
		return ""
	}
	return semver.Canonical(v)
}

func executablePath(explicit string) string {
	p := strings.TrimSpace(explicit)
	if p == "" {
		exe, err := os.Executable()
		if err != nil {
			return ""
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		p = exe
	}
	return strings.ToLower(filepath.ToSlash(filepath.Clean(p)))
}

func detectInstallMethod(path string) InstallMethod {
	switch {
	case path == "" || path == ".":
		return InstallUnknown
	case strings.Contains(path, "/cellar/"+binaryName+"/"):
		return InstallHomebrew
	case strings.HasSuffix(path, "/go/bin/"+binaryName), strings.HasSuffix(path, "/go/bin/"+binaryName+".exe"):
		return InstallGoInstall
	}
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dir := strings.ToLower(filepath.ToSlash(filepath.Clean(gobin)))
		if strings.TrimSuffix(path, ".exe") == dir+"/"+binaryName {
			return InstallGoInstall
		}
	}
	return InstallUnknown
}

func upgradeHint(m InstallMethod) string {
	switch m {
	case InstallHomebrew:
		return homebrewUpgrade
	case InstallGoInstall:
		return goInstallUpgrade
	default:
		return releasesPageHint
	}
}
