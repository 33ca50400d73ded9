package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
	logger "github.com/hollowaylabs/cloak/internal/logging"
)

const remoteName = "origin"

// fetchAttempts bounds the retry loop around network operations. Only
// source fetches retry; every other failure class surfaces immediately.
const fetchAttempts = 3

// Config tells the connector which repository to use and where its local
// checkout lives.
type Config struct {
	// URL is the secrets repository location (any transport git accepts,
	// including a local path).
	URL string

	// CheckoutPath is the local clone directory.
	CheckoutPath string
}

// ProgressFunc receives human-readable transfer progress lines while a
// clone or fetch is running. It is invoked from the calling goroutine;
// the connector itself is not concurrent.
type ProgressFunc func(line string)

// Checkout is an open local clone of the secrets repository. All access
// is read-only with respect to the remote: the connector fetches but
// never pushes.
type Checkout struct {
	repo *git.Repository
	path string
	log  logger.Logger
}

// Open returns the checkout at cfg.CheckoutPath, cloning from cfg.URL if
// none exists yet. Cloning reports progress through progress and retries
// transient network failures with backoff.
func Open(cfg Config, progress ProgressFunc, log logger.Logger) (*Checkout, error) {
	repo, err := git.PlainOpen(cfg.CheckoutPath)
	if err == nil {
		log.Debugf("Opened secrets checkout at %s", cfg.CheckoutPath)
		return &Checkout{repo: repo, path: cfg.CheckoutPath, log: log}, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("failed to open secrets checkout at %s: %w", cfg.CheckoutPath, err)
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: no checkout at %s and no repository URL configured", cloakerrors.ErrSourceUnavailable, cfg.CheckoutPath)
	}

	log.Infof("Cloning secrets repository %s into %s", cfg.URL, cfg.CheckoutPath)

	err = withRetry(log, func() error {
		_, cloneErr := git.PlainClone(cfg.CheckoutPath, false, &git.CloneOptions{
			URL:      cfg.URL,
			Progress: progressWriter(progress),
		})
		if cloneErr != nil {
			// A failed clone must not leave a half-populated checkout that a
			// later Open would mistake for a valid one.
			os.RemoveAll(cfg.CheckoutPath)
		}
		return cloneErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: cloning %s: %v", cloakerrors.ErrSourceUnavailable, cfg.URL, err)
	}

	repo, err = git.PlainOpen(cfg.CheckoutPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open freshly cloned checkout: %w", err)
	}

	return &Checkout{repo: repo, path: cfg.CheckoutPath, log: log}, nil
}

// Path returns the local checkout directory.
func (c *Checkout) Path() string {
	return c.path
}

// Fetch fast-forwards the checkout's remote refs. Network failures retry
// with backoff before surfacing as ErrSourceUnavailable; on failure the
// previously fetched refs are left untouched, so stale-but-consistent
// state survives an outage.
func (c *Checkout) Fetch(progress ProgressFunc) error {
	err := withRetry(c.log, func() error {
		fetchErr := c.repo.Fetch(&git.FetchOptions{
			RemoteName: remoteName,
			Progress:   progressWriter(progress),
		})
		if errors.Is(fetchErr, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return fetchErr
	})
	if err != nil {
		return fmt.Errorf("%w: fetching from %s: %v", cloakerrors.ErrSourceUnavailable, remoteName, err)
	}

	c.log.Debugf("Fetch complete")
	return nil
}

// ResolveBranch returns the commit hash at the tip of branch, preferring
// the remote-tracking ref (Fetch should have run first) and falling back
// to a local branch for checkouts without a remote.
func (c *Checkout) ResolveBranch(branch string) (string, error) {
	ref, err := c.repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err != nil {
		ref, err = c.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	}
	if err != nil {
		return "", fmt.Errorf("%w: branch %q", cloakerrors.ErrSourceRevisionMissing, branch)
	}

	return ref.Hash().String(), nil
}

// FilesAt reads the given paths from the commit tree at hash, without
// touching the worktree. Paths absent at that revision are returned in
// missing rather than treated as errors, so the caller can prune them.
func (c *Checkout) FilesAt(hash string, paths []string) (map[string][]byte, []string, error) {
	commit, err := c.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: commit %s", cloakerrors.ErrSourceRevisionMissing, hash)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tree for commit %s: %w", hash, err)
	}

	contents := make(map[string][]byte, len(paths))
	var missing []string

	for _, p := range paths {
		file, err := tree.File(p)
		if err != nil {
			if errors.Is(err, object.ErrFileNotFound) {
				missing = append(missing, p)
				continue
			}
			return nil, nil, fmt.Errorf("failed to read %s at %s: %w", p, hash, err)
		}

		reader, err := file.Reader()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s at %s: %w", p, hash, err)
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s at %s: %w", p, hash, err)
		}

		contents[p] = data
	}

	return contents, missing, nil
}

// HasFileAt reports whether path exists in the commit tree at hash.
func (c *Checkout) HasFileAt(hash, path string) (bool, error) {
	_, missing, err := c.FilesAt(hash, []string{path})
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// Branches lists the checkout's local branch names.
func (c *Checkout) Branches() ([]string, error) {
	iter, err := c.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	return names, nil
}

// CurrentBranch returns the branch name at HEAD, or the empty string when
// HEAD is detached.
func (c *Checkout) CurrentBranch() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// withRetry runs op with bounded exponential backoff. Authentication
// failures do not retry: a bad credential will not fix itself.
func withRetry(log logger.Logger, op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
			return backoff.Permanent(err)
		}
		log.Warnf("Secrets repository attempt %d failed: %v", attempt, err)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second

	return backoff.Retry(wrapped, backoff.WithMaxRetries(policy, fetchAttempts-1))
}

// progressWriter adapts a ProgressFunc to the io.Writer the git transport
// writes sideband progress to. A nil ProgressFunc discards progress.
func progressWriter(fn ProgressFunc) io.Writer {
	if fn == nil {
		return io.Discard
	}
	return &callbackWriter{fn: fn}
}

type callbackWriter struct {
	fn  ProgressFunc
	buf []byte
}

func (w *callbackWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)

	// Sideband progress terminates updates with \r and lines with \n.
	for {
		idx := -1
		for i, b := range w.buf {
			if b == '\n' || b == '\r' {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}

		line := string(w.buf[:idx])
		w.buf = w.buf[idx+1:]
		if line != "" {
			w.fn(line)
		}
	}

	return len(p), nil
}
