package loader

import (
	"sync"
	"time"

	"github.com/giantswarm/classloader/factory"
	"github.com/gofrs/flock"
)

// DefaultLockTimeout is used when PluginOptions.LockTimeout is not positive.
const DefaultLockTimeout = 10 * time.Second

// PluginOptions configures a Plugin library.
type PluginOptions struct {
	// LockFile holds a shared advisory lock on the library file while it is
	// loaded. Tools that replace library files take an exclusive lock on the
	// same file first, so they wait until every user has unloaded it.
	LockFile bool

	// LockTimeout bounds how long Load waits for the shared lock.
	LockTimeout time.Duration
}

// Plugin is a library backed by a Go plugin image (-buildmode=plugin).
//
// The Go runtime never unmaps a plugin once opened. Unload therefore drops
// the class table and the file lock, after which the library refuses to
// build instances until it is loaded again; reopening reuses the mapped
// image and runs its registrar against a fresh table.
type Plugin struct {
	path string
	opts PluginOptions

	mu    sync.Mutex
	table *factory.Table
	lock  *flock.Flock
}

// NewPlugin returns a closed Plugin library for the image at path.
func NewPlugin(path string, opts PluginOptions) *Plugin {
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	return &Plugin{path: path, opts: opts}
}

// Path returns the library path.
func (p *Plugin) Path() string { return p.path }

// Load opens the image and registers its classes. Loading an open library
// is a no-op.
func (p *Plugin) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.table != nil {
		return nil
	}

	var fl *flock.Flock
	if p.opts.LockFile {
		var err error
		if fl, err = acquireSharedLock(p.path, p.opts.LockTimeout); err != nil {
			return err
		}
	}

	register, err := openRegistrar(p.path)
	if err != nil {
		_ = releaseLock(fl)
		return err
	}

	t := factory.NewTable()
	register(t)
	p.table = t
	p.lock = fl
	return nil
}

// Unload drops the class table and releases the file lock. Unloading a
// closed library is a no-op.
func (p *Plugin) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.table == nil {
		return nil
	}
	p.table = nil
	fl := p.lock
	p.lock = nil
	return releaseLock(fl)
}

// IsLoaded reports whether the library is open.
func (p *Plugin) IsLoaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table != nil
}

// Classes returns the classes registered by the open library.
func (p *Plugin) Classes() []factory.ClassInfo {
	p.mu.Lock()
	t := p.table
	p.mu.Unlock()

	if t == nil {
		return nil
	}
	return t.Classes()
}

// New builds an instance of the named class.
func (p *Plugin) New(className string) (any, error) {
	p.mu.Lock()
	t := p.table
	p.mu.Unlock()

	if t == nil {
		return nil, ErrNotLoaded.Errorf("%s", p.path)
	}
	return t.New(className)
}
