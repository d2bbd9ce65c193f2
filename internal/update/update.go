// Package update checks GitHub releases for a newer foxter, caching the
// answer for a day.
package update

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	semver "github.com/blang/semver/v4"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

const (
	// Slug is the GitHub owner/repo releases are published under.
	Slug          = "foxter/foxter"
	cacheFileName = "update.json"
	cacheTTL      = 24 * time.Hour
)

type cache struct {
	LastChecked time.Time `json:"last_checked"`
	Latest      string    `json:"latest"`
}

// latestFunc looks up the newest released version.
var latestFunc = latestVersionOnline

func configDir() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "foxter")
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return ""
	}
	return filepath.Join(home, ".config", "foxter")
}

func loadCache() (cache, error) {
	var c cache
	dir := configDir()
	if dir == "" {
		return c, errors.New("no config dir")
	}
	b, err := os.ReadFile(filepath.Join(dir, cacheFileName))
	if err != nil {
		return c, err
	}
	_ = json.Unmarshal(b, &c)
	return c, nil
}

func saveCache(c cache) {
	dir := configDir()
	if dir == "" {
		return
	}
	_ = os.MkdirAll(dir, 0755)
	b, _ := json.MarshalIndent(c, "", "  ")
	_ = os.WriteFile(filepath.Join(dir, cacheFileName), b, 0644)
}

func latestVersionOnline() (string, error) {
	rel, found, err := selfupdate.DetectLatest(Slug)
	if err != nil {
		return "", err
	}
	if !found {
		return "", errors.New("no release found")
	}
	return rel.Version.String(), nil
}

// Check returns (latest, isNewer, error). It uses a 24h cache and skips in CI.
func Check(current string, noNetwork bool) (string, bool, error) {
	if os.Getenv("CI") != "" || noNetwork {
		return "", false, nil
	}
	current = normalize(current)
	c, _ := loadCache()
	latest := c.Latest
	if time.Since(c.LastChecked) > cacheTTL || latest == "" {
		v, err := latestFunc()
		if err != nil {
			if latest == "" {
				return "", false, err
			}
		} else {
			latest = normalize(v)
			c.Latest = latest
			c.LastChecked = time.Now()
			saveCache(c)
		}
	}
	if latest == "" || current == "" {
		return latest, false, nil
	}
	return latest, compare(latest, current) > 0, nil
}

func normalize(v string) string {
	v = strings.TrimSpace(v)
	return strings.TrimPrefix(v, "v")
}

// compare orders two versions by semver precedence. Unparseable versions
// sort as 0.0.0.
func compare(a, b string) int {
	return parse(a).Compare(parse(b))
}

func parse(v string) semver.Version {
	ver, err := semver.ParseTolerant(v)
	if err != nil {
		return semver.Version{}
	}
	return ver
}
