package daemon

import (
	"path/filepath"

	"github.com/janekbaraniewski/calgrid/internal/store"
)

// DefaultSocketPath is the daemon socket under the state directory.
func DefaultSocketPath() (string, error) {
	dir, err := store.DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "calgrid.sock"), nil
}
