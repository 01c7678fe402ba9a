// Package session provides the client-chosen session identity: a stable
// opaque string attached to outbound envelopes so the server can correlate
// physical reconnects into one logical session.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultKey is the file name used for persisted identities.
const DefaultKey = "session_id"

// Options controls identity persistence.
type Options struct {
	// Persist enables reading/writing the identity to durable storage.
	Persist bool

	// Dir is the storage directory. Defaults to the user config directory
	// under a "contesttest" subdirectory.
	Dir string

	// Key is the storage file name. Defaults to DefaultKey.
	Key string
}

// Identity is a stable per-instance session identifier, optionally persisted
// across restarts. Safe for concurrent use.
type Identity struct {
	opts Options

	mu sync.Mutex
	id string
}

// Load creates an identity, restoring a persisted value when one exists and
// generating a fresh one otherwise. A persistence failure degrades to an
// in-memory identity rather than failing the caller.
func Load(opts Options, logger *slog.Logger) *Identity {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			opts.Dir = filepath.Join(base, "contesttest")
		} else {
			opts.Persist = false
		}
	}

	ident := &Identity{opts: opts}

	if opts.Persist {
		if id, err := readStored(ident.path()); err == nil && id != "" {
			ident.id = id
			return ident
		}
	}

	ident.id = uuid.NewString()
	if opts.Persist {
		if err := writeStored(ident.path(), ident.id); err != nil {
			logger.Warn("failed to persist session identity", "path", ident.path(), "error", err)
		}
	}

	return ident
}

// ID returns the current identity.
func (i *Identity) ID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.id
}

// Regenerate replaces the identity with a fresh value, persisting it when
// persistence is enabled, and returns the new value.
func (i *Identity) Regenerate() (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.id = uuid.NewString()
	if i.opts.Persist {
		if err := writeStored(i.path(), i.id); err != nil {
			return i.id, fmt.Errorf("persist session identity: %w", err)
		}
	}
	return i.id, nil
}

// Clear removes any persisted identity. The in-memory value is kept; the
// next Load starts fresh.
func (i *Identity) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.opts.Persist {
		return nil
	}
	if err := os.Remove(i.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear session identity: %w", err)
	}
	return nil
}

func (i *Identity) path() string {
	return filepath.Join(i.opts.Dir, i.opts.Key)
}

func readStored(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeStored(path, id string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(id+"\n"), 0o600)
}
