// Package authoring assembles the event sequences for init, send,
// push-on-merge, and co-maintainer auto-accept (spec.md §4.8).
package authoring

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/make-os/nostrgit/internal/capability"
)

// GraspProvisionTimeout is the production bound on how long init/push
// waits for a grasp server to finish provisioning a bare repo before
// giving up (spec.md §5).
const GraspProvisionTimeout = 15 * time.Second

// GraspProvisionTimeoutTest is the bound used under test, so grasp-less
// test fakes don't stall a test suite.
const GraspProvisionTimeoutTest = 2 * time.Second

// GraspCloneURL derives the per-grasp clone URL for a repository.
func GraspCloneURL(graspHost, authorNpub, identifier string) string {
	return fmt.Sprintf("https://%s/%s/%s.git", graspHost, authorNpub, identifier)
}

// WaitForGraspProvision polls cloneURL with an exponential backoff until
// the server serves the repo (ls-remote succeeds) or timeout elapses.
func WaitForGraspProvision(ctx context.Context, git capability.Git, cloneURL string, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout

	operation := func() error {
		if _, err := git.LsRemote(cloneURL); err != nil {
			return err
		}
		return nil
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
