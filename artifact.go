package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var errArtifactPending = errors.New("artifact not present yet")

// ArtifactWatcher waits for a downloaded file with a known suffix.
type ArtifactWatcher struct {
	dir    string
	suffix string
	policy RetryPolicy
}

func NewArtifactWatcher(dir, suffix string, interval time.Duration) *ArtifactWatcher {
	return &ArtifactWatcher{
		dir:    dir,
		suffix: suffix,
		policy: RetryPolicy{
			Delay: interval,
			Retryable: func(err error) bool {
				return errors.Is(err, errArtifactPending)
			},
		},
	}
}

// Wait polls until a matching file exists and returns its path. There is
// no attempt limit: only ctx ends the wait early.
func (w *ArtifactWatcher) Wait(ctx context.Context) (string, error) {
	return Retry(ctx, w.policy, func(ctx context.Context, attempt int) (string, error) {
		return w.find()
	})
}

func (w *ArtifactWatcher) find() (string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errArtifactPending
		}
		return "", err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), w.suffix) {
			return filepath.Join(w.dir, entry.Name()), nil
		}
	}
	return "", errArtifactPending
}
