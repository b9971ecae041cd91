package loader

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryInterval is the interval between attempts to take a library file
// lock while an exclusive holder is active.
const lockRetryInterval = 50 * time.Millisecond

// acquireSharedLock takes a shared advisory lock on the library file at path,
// retrying until timeout. The file must already exist: flock would otherwise
// create an empty file at the library path.
func acquireSharedLock(path string, timeout time.Duration) (*flock.Flock, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("lock library %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	fl := flock.New(path)
	locked, err := fl.TryRLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("lock library %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock library %s: lock not acquired", path)
	}
	return fl, nil
}

// releaseLock unlocks and closes fl. A nil lock is a no-op. The file itself
// is left untouched: it is the library.
func releaseLock(fl *flock.Flock) error {
	if fl == nil {
		return nil
	}
	if err := fl.Close(); err != nil {
		return fmt.Errorf("unlock library %s: %w", fl.Path(), err)
	}
	return nil
}
