package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// releasesURL points at the latest hntop release. Tests override it.
var releasesURL = "https://api.github.com/repos/matheuskafuri/hntop/releases/latest"

const checkTimeout = 5 * time.Second

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
}

// Check reports a release newer than currentVersion, or nil. Development
// builds and any lookup failure yield nil.
func Check(ctx context.Context, currentVersion string) *Result {
	current := strings.TrimPrefix(currentVersion, "v")
	if current == "" || current == "dev" {
		return nil
	}

	latest, err := latestTag(ctx)
	if err != nil || latest == "" {
		return nil
	}
	if !newer(latest, current) {
		return nil
	}
	return &Result{LatestVersion: latest}
}

// latestTag returns the tag of the newest GitHub release without its "v".
func latestTag(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "hntop")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("decoding release: %w", err)
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}

// newer reports whether latest is a higher version than current. Tags that
// aren't semver compare as plain strings.
func newer(latest, current string) bool {
	l, c := "v"+latest, "v"+current
	if !semver.IsValid(l) || !semver.IsValid(c) {
		return latest != current
	}
	return semver.Compare(l, c) > 0
}
