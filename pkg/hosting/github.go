// Package hosting is the collaborator boundary to the GitHub API. It wraps
// google/go-github behind the handful of operations tapbump needs:
// repository metadata, the latest release, tag lookup, and formula blob
// fetch/commit with the contents API's optimistic concurrency check.
package hosting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/go-github/v52/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/arthur-debert/tapbump/pkg/errors"
	"github.com/arthur-debert/tapbump/pkg/logging"
)

// Repository is the slice of repository metadata tapbump consumes.
type Repository struct {
	Owner    string
	Name     string
	CloneURL string
}

// FullName returns the owner/name form of the repository.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Asset is a file attached to a release.
type Asset struct {
	Name        string
	DownloadURL string
}

// Release is the most recently published release of a repository.
type Release struct {
	TagName string
	Assets  []Asset
}

// FileContents is a fetched blob plus the SHA the commit API uses to
// reject stale writes.
type FileContents struct {
	Content []byte
	SHA     string
}

// GitHubClient implements the hosting operations against the GitHub API.
type GitHubClient struct {
	api        *github.Client
	downloader *http.Client
	log        zerolog.Logger
}

// NewGitHubClient builds a client authenticated with the given token.
// Asset downloads use an unauthenticated client so the token is never sent
// to the CDN hosts release downloads redirect to.
func NewGitHubClient(ctx context.Context, token string) *GitHubClient {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHubClient{
		api:        github.NewClient(oauth2.NewClient(ctx, ts)),
		downloader: &http.Client{},
		log:        logging.GetLogger("hosting"),
	}
}

// SplitFullName splits an owner/repo string.
func SplitFullName(fullName string) (string, string, error) {
	owner, name, found := strings.Cut(fullName, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", errors.Newf(errors.ErrConfigInvalid,
			"repository %q must be in owner/repo form", fullName)
	}
	return owner, name, nil
}

// Repository fetches metadata for an owner/repo full name.
func (c *GitHubClient) Repository(ctx context.Context, fullName string) (Repository, error) {
	owner, name, err := SplitFullName(fullName)
	if err != nil {
		return Repository{}, err
	}

	repo, _, err := c.api.Repositories.Get(ctx, owner, name)
	if err != nil {
		return Repository{}, errors.Wrapf(err, errors.ErrNetwork,
			"failed to fetch repository %s", fullName)
	}

	return Repository{
		Owner:    repo.GetOwner().GetLogin(),
		Name:     repo.GetName(),
		CloneURL: repo.GetCloneURL(),
	}, nil
}

// LatestRelease returns the most recently published release. GitHub lists
// releases newest first, so only the first page entry is needed.
func (c *GitHubClient) LatestRelease(ctx context.Context, owner, name string) (Release, error) {
	releases, _, err := c.api.Repositories.ListReleases(ctx, owner, name,
		&github.ListOptions{PerPage: 1})
	if err != nil {
		return Release{}, errors.Wrapf(err, errors.ErrNetwork,
			"failed to list releases for %s/%s", owner, name)
	}
	if len(releases) == 0 {
		return Release{}, errors.Newf(errors.ErrReleaseNotFound,
			"no releases found for %s/%s", owner, name)
	}

	release := releases[0]
	out := Release{TagName: release.GetTagName()}
	for _, asset := range release.Assets {
		out.Assets = append(out.Assets, Asset{
			Name:        asset.GetName(),
			DownloadURL: asset.GetBrowserDownloadURL(),
		})
	}

	c.log.Debug().
		Str("tag", out.TagName).
		Int("assets", len(out.Assets)).
		Msg("Latest release fetched")
	return out, nil
}

// TagCommit resolves a tag name to its commit SHA, paginating the tag list
// until the tag is found.
func (c *GitHubClient) TagCommit(ctx context.Context, owner, name, tag string) (string, error) {
	opts := &github.ListOptions{PerPage: 100}
	for {
		tags, resp, err := c.api.Repositories.ListTags(ctx, owner, name, opts)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrNetwork,
				"failed to list tags for %s/%s", owner, name)
		}
		for _, t := range tags {
			if t.GetName() == tag {
				return t.GetCommit().GetSHA(), nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return "", errors.Newf(errors.ErrTagNotFound,
		"tag %s not found in %s/%s", tag, owner, name)
}

// FileContents fetches a blob and its content SHA from the tap.
func (c *GitHubClient) FileContents(ctx context.Context, owner, name, path string) (FileContents, error) {
	file, _, _, err := c.api.Repositories.GetContents(ctx, owner, name, path, nil)
	if err != nil {
		return FileContents{}, errors.Wrapf(err, errors.ErrNetwork,
			"failed to fetch %s from %s/%s", path, owner, name)
	}
	if file == nil {
		return FileContents{}, errors.Newf(errors.ErrConfigInvalid,
			"%s in %s/%s is a directory, not a formula file", path, owner, name)
	}

	content, err := file.GetContent()
	if err != nil {
		return FileContents{}, errors.Wrapf(err, errors.ErrNetwork,
			"failed to decode contents of %s", path)
	}
	return FileContents{Content: []byte(content), SHA: file.GetSHA()}, nil
}

// UpdateFile commits new contents for path. The prior blob SHA makes the
// write conditional: GitHub rejects it with a conflict when the file
// changed since it was fetched.
func (c *GitHubClient) UpdateFile(ctx context.Context, owner, name, path, message, sha string, content []byte) error {
	_, resp, err := c.api.Repositories.UpdateFile(ctx, owner, name, path,
		&github.RepositoryContentFileOptions{
			Message: github.String(message),
			Content: content,
			SHA:     github.String(sha),
		})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return errors.Wrapf(err, errors.ErrCommitConflict,
				"commit of %s rejected, the formula changed since it was fetched", path)
		}
		return errors.Wrapf(err, errors.ErrNetwork, "failed to commit %s", path)
	}

	c.log.Info().Str("path", path).Str("message", message).Msg("Formula committed")
	return nil
}

// Download fetches the raw bytes of a release asset.
func (c *GitHubClient) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDownload, "invalid asset url %s", url)
	}

	resp, err := c.downloader.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDownload, "failed to download %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrap(fmt.Errorf("unexpected status %s", resp.Status),
			errors.ErrDownload, "failed to download "+url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrDownload, "failed to read %s", url)
	}
	return data, nil
}
