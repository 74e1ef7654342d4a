// Package bottle matches release assets against the Homebrew bottle naming
// convention and resolves their checksums.
package bottle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/arthur-debert/tapbump/pkg/logging"
)

// Asset is a release attachment as seen by the matcher: just a file name
// and somewhere to download it from.
type Asset struct {
	Name        string
	DownloadURL string
}

// Entry is a matched bottle asset. SHA256 is empty until the checksum
// resolver fills it in.
type Entry struct {
	Platform string
	Asset    Asset
	SHA256   string
}

// MatchResult holds matched bottle entries in asset order plus the resolved
// rebuild counter. When assets disagree on the rebuild number the first
// seen value wins and RebuildConflict is set.
type MatchResult struct {
	Entries         []Entry
	Rebuild         int
	RebuildSet      bool
	RebuildConflict bool
}

// Match identifies bottle assets for a formula at a given release tag.
// A bottle is named `<formula>-<version>.<platform>.bottle.[<rebuild>.]tar.gz`
// where version is the tag with any leading "v" stripped; formula and
// version are matched as literal text. Zero matches is a valid result.
func Match(formulaName, tag string, assets []Asset) MatchResult {
	logger := logging.GetLogger("bottle")

	version := strings.TrimPrefix(tag, "v")
	pattern := regexp.MustCompile(
		"^" + regexp.QuoteMeta(formulaName+"-"+version) + `\.([^.]+)\.bottle\.(?:(\d+)\.)?tar\.gz$`)

	var result MatchResult
	seen := make(map[string]bool)

	for _, asset := range assets {
		m := pattern.FindStringSubmatch(asset.Name)
		if m == nil {
			continue
		}
		platform := m[1]
		if seen[platform] {
			logger.Warn().
				Str("asset", asset.Name).
				Str("platform", platform).
				Msg("Duplicate bottle platform, keeping first asset")
			continue
		}
		seen[platform] = true
		result.Entries = append(result.Entries, Entry{Platform: platform, Asset: asset})

		if m[2] == "" {
			continue
		}
		rebuild, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		switch {
		case !result.RebuildSet:
			result.Rebuild = rebuild
			result.RebuildSet = true
		case result.Rebuild != rebuild:
			result.RebuildConflict = true
			logger.Warn().
				Str("asset", asset.Name).
				Int("kept", result.Rebuild).
				Int("ignored", rebuild).
				Msg("Mismatched bottle rebuild number, keeping first seen value")
		}
	}

	return result
}
