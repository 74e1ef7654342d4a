package bottle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/arthur-debert/tapbump/pkg/errors"
	"github.com/arthur-debert/tapbump/pkg/logging"
)

// Downloader fetches the raw bytes of a release asset.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// ResolveChecksums downloads each matched bottle exactly once and fills in
// its lowercase hex sha256 digest. Any failed fetch aborts the whole
// resolution: a formula with partial bottle checksums is never produced.
func ResolveChecksums(ctx context.Context, dl Downloader, entries []Entry) error {
	logger := logging.GetLogger("bottle")

	for i := range entries {
		entry := &entries[i]
		logger.Debug().
			Str("asset", entry.Asset.Name).
			Str("platform", entry.Platform).
			Msg("Downloading bottle")

		data, err := dl.Download(ctx, entry.Asset.DownloadURL)
		if err != nil {
			return errors.Wrapf(err, errors.ErrDownload,
				"failed to download bottle %s", entry.Asset.Name)
		}

		sum := sha256.Sum256(data)
		entry.SHA256 = hex.EncodeToString(sum[:])

		logger.Debug().
			Str("asset", entry.Asset.Name).
			Int("bytes", len(data)).
			Str("sha256", entry.SHA256).
			Msg("Bottle checksum resolved")
	}

	return nil
}
