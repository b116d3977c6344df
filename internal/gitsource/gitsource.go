package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// IsURL reports whether path looks like a git remote rather than a local
// directory. A bare path ending in .git is a remote only when nothing
// exists at that path locally.
func IsURL(path string) bool {
	u, err := url.Parse(path)
	if err == nil && u.Host != "" && (u.Scheme == "https" || u.Scheme == "http" || u.Scheme == "ssh" || u.Scheme == "git") {
		return true
	}
	if isSCP(path) {
		return true
	}
	if strings.HasSuffix(path, ".git") {
		_, err := os.Stat(path)
		return errors.Is(err, fs.ErrNotExist)
	}
	return false
}

// isSCP matches the user@host:path form used by ssh remotes.
func isSCP(path string) bool {
	at := strings.Index(path, "@")
	colon := strings.Index(path, ":")
	slash := strings.Index(path, "/")
	return at > 0 && colon > at+1 && (slash < 0 || colon < slash)
}

// LocalPath maps a repository URL to its checkout directory under baseDir.
// Both https://host/owner/repo.git and git@host:owner/repo.git map to
// baseDir/host/owner/repo.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil && parsed.Scheme != "" && parsed.Host != "" {
		repoPath := strings.TrimSuffix(strings.Trim(parsed.Path, "/"), ".git")
		if repoPath == "" {
			return "", fmt.Errorf("git URL %s has no repository path", repoURL)
		}
		return filepath.Join(baseDir, parsed.Hostname(), filepath.FromSlash(repoPath)), nil
	}

	// scp-like syntax: user@host:owner/repo.git
	userHost, repoPath, ok := strings.Cut(repoURL, ":")
	if ok && strings.Contains(userHost, "@") {
		_, host, _ := strings.Cut(userHost, "@")
		repoPath = strings.TrimSuffix(strings.Trim(repoPath, "/"), ".git")
		if host != "" && repoPath != "" {
			return filepath.Join(baseDir, host, filepath.FromSlash(repoPath)), nil
		}
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}

// Sync clones a git repository if it doesn't exist at localPath, or pulls
// the latest changes if it does. Progress output goes to progress when it
// is not nil.
func Sync(ctx context.Context, repoURL, localPath string, progress io.Writer) error {
	_, err := os.Stat(localPath)
	switch {
	case os.IsNotExist(err):
		slog.Info("Cloning word list repository", "url", repoURL, "path", localPath)
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return fmt.Errorf("failed to create parent of %s: %w", localPath, err)
		}
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
			URL:      repoURL,
			Progress: progress,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repo %s: %w", repoURL, err)
		}
		slog.Info("Clone successful", "path", localPath)
	case err == nil:
		slog.Info("Pulling word list repository", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{
			RemoteName: "origin",
			Progress:   progress,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		slog.Info("Pull successful", "path", localPath, "up_to_date", errors.Is(err, git.NoErrAlreadyUpToDate))
	default:
		return fmt.Errorf("error checking path %s: %w", localPath, err)
	}

	return nil
}
