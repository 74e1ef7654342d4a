// Package updater orchestrates one synchronization run: fetch release and
// tag metadata, match and checksum bottles, rewrite the formula, normalize
// it, and commit the result to the tap when it changed.
package updater

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/tapbump/pkg/bottle"
	"github.com/arthur-debert/tapbump/pkg/errors"
	"github.com/arthur-debert/tapbump/pkg/formula"
	"github.com/arthur-debert/tapbump/pkg/hosting"
	"github.com/arthur-debert/tapbump/pkg/logging"
)

// HostingClient is the slice of the hosting boundary the updater consumes.
// *hosting.GitHubClient implements it; tests substitute fakes.
type HostingClient interface {
	Repository(ctx context.Context, fullName string) (hosting.Repository, error)
	LatestRelease(ctx context.Context, owner, name string) (hosting.Release, error)
	TagCommit(ctx context.Context, owner, name, tag string) (string, error)
	FileContents(ctx context.Context, owner, name, path string) (hosting.FileContents, error)
	UpdateFile(ctx context.Context, owner, name, path, message, sha string, content []byte) error
	Download(ctx context.Context, url string) ([]byte, error)
}

// Normalizer is the external formatter collaborator. Its output replaces
// the rewriter's text before the up-to-date comparison.
type Normalizer interface {
	Normalize(text []byte) ([]byte, error)
}

// Options configure a single run.
type Options struct {
	Repository  string // upstream owner/repo
	Tap         string // tap owner/repo
	FormulaPath string // formula path inside the tap
	Name        string // formula name override; defaults to the repo's short name
	Message     string // commit message override; defaults to "Update <name> to <tag>"
}

// Result reports what a run did.
type Result struct {
	Updated bool
	Tag     string
	Message string
}

// Updater runs the fetch → match → checksum → rewrite → normalize → commit
// sequence. Runs are strictly sequential and independent; re-running with
// unchanged upstream state is a no-op.
type Updater struct {
	client     HostingClient
	normalizer Normalizer
	log        zerolog.Logger
}

// New builds an Updater from its collaborators.
func New(client HostingClient, normalizer Normalizer) *Updater {
	return &Updater{
		client:     client,
		normalizer: normalizer,
		log:        logging.GetLogger("updater"),
	}
}

// Run executes one synchronization and returns what happened. Every error
// is fatal for the run; the commit is the single terminal side effect and
// only happens after the entire rewrite and normalize sequence succeeded.
func (u *Updater) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Repository == "" || opts.Tap == "" || opts.FormulaPath == "" {
		return nil, errors.New(errors.ErrConfigInvalid,
			"repository, tap, and formula path are all required")
	}

	tapOwner, tapName, err := hosting.SplitFullName(opts.Tap)
	if err != nil {
		return nil, err
	}

	repo, err := u.client.Repository(ctx, opts.Repository)
	if err != nil {
		return nil, err
	}

	release, err := u.client.LatestRelease(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("repository", repo.FullName()).Str("tag", release.TagName).Msg("Latest release resolved")

	revision, err := u.client.TagCommit(ctx, repo.Owner, repo.Name, release.TagName)
	if err != nil {
		return nil, err
	}

	file, err := u.client.FileContents(ctx, tapOwner, tapName, opts.FormulaPath)
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = repo.Name
	}

	assets := make([]bottle.Asset, 0, len(release.Assets))
	for _, a := range release.Assets {
		assets = append(assets, bottle.Asset{Name: a.Name, DownloadURL: a.DownloadURL})
	}

	match := bottle.Match(name, release.TagName, assets)
	if len(match.Entries) == 0 && len(assets) > 0 {
		// Could mean the release genuinely ships no bottles, or that the
		// assets use an unexpected naming scheme. Either way any existing
		// bottle block gets dropped, so make it visible.
		u.log.Warn().
			Int("assets", len(assets)).
			Str("formula", name).
			Msg("Release has assets but none matched the bottle naming pattern")
	}

	if err := bottle.ResolveChecksums(ctx, u.client, match.Entries); err != nil {
		return nil, err
	}

	doc := formula.Parse(file.Content)
	entries := make([]formula.BottleEntry, 0, len(match.Entries))
	for _, e := range match.Entries {
		entries = append(entries, formula.BottleEntry{Platform: e.Platform, SHA256: e.SHA256})
	}

	rewritten, err := formula.Rewrite(doc, formula.RewriteSpec{
		Tag:        release.TagName,
		CloneURL:   repo.CloneURL,
		Revision:   revision,
		RootURL:    formula.RootURL(repo.Owner, repo.Name, release.TagName),
		Bottles:    entries,
		Rebuild:    match.Rebuild,
		RebuildSet: match.RebuildSet,
	})
	if err != nil {
		return nil, err
	}

	normalized, err := u.normalizer.Normalize(rewritten)
	if err != nil {
		return nil, err
	}

	if bytes.Equal(normalized, file.Content) {
		u.log.Info().Str("formula", opts.FormulaPath).Msg("Formula already up to date")
		return &Result{Updated: false, Tag: release.TagName}, nil
	}

	message := opts.Message
	if message == "" {
		message = fmt.Sprintf("Update %s to %s", name, release.TagName)
	}

	if err := u.client.UpdateFile(ctx, tapOwner, tapName, opts.FormulaPath, message, file.SHA, normalized); err != nil {
		return nil, err
	}

	return &Result{Updated: true, Tag: release.TagName, Message: message}, nil
}
