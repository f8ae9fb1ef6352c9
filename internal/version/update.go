package version

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"
)

const repo = "litescript/torrenthunt"

// UpdateInfo contains information about available updates.
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	Error           error
}

// Checker queries the GitHub API for newer releases.
type Checker struct {
	BaseURL string // GitHub API root
	Client  *http.Client
	Current string
}

// CheckForUpdate checks GitHub for the latest release version.
func CheckForUpdate(ctx context.Context) UpdateInfo {
	c := Checker{
		BaseURL: "https://api.github.com",
		Client:  &http.Client{Timeout: 5 * time.Second},
		Current: Version,
	}
	return c.Check(ctx)
}

// Check returns the latest release, falling back to tags when the
// repository has no releases.
func (c Checker) Check(ctx context.Context) UpdateInfo {
	info := UpdateInfo{CurrentVersion: c.Current}

	body, status, err := c.get(ctx, "/repos/"+repo+"/releases/latest")
	if err != nil {
		info.Error = fmt.Errorf("failed to check for updates: %w", err)
		return info
	}

	tag := ""
	if status == http.StatusOK {
		tag = gjson.GetBytes(body, "tag_name").String()
	} else {
		body, status, err = c.get(ctx, "/repos/"+repo+"/tags")
		if err != nil {
			info.Error = fmt.Errorf("failed to check for updates: %w", err)
			return info
		}
		if status != http.StatusOK {
			info.Error = fmt.Errorf("failed to check for updates: status %d", status)
			return info
		}
		if !gjson.ValidBytes(body) {
			info.Error = errors.New("failed to parse update response")
			return info
		}
		// Tags are returned newest first
		tag = gjson.GetBytes(body, "0.name").String()
	}

	if tag == "" {
		info.LatestVersion = info.CurrentVersion
		return info
	}

	info.LatestVersion = normalizeVersion(tag)
	info.UpdateAvailable = isNewerVersion(info.LatestVersion, info.CurrentVersion)
	return info
}

func (c Checker) get(ctx context.Context, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return body, resp.StatusCode, err
}

// normalizeVersion strips the "v" prefix if present.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewerVersion returns true if latest is newer than current. Versions that
// are not semver never count as newer.
func isNewerVersion(latest, current string) bool {
	lv, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	cv, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	return lv.GreaterThan(cv)
}

// InstallCommand returns the command to update the application.
func InstallCommand() string {
	return "go install github.com/" + repo + "/cmd/torrenthunt@latest"
}
