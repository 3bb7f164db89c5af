package history

import (
	"fmt"

	"github.com/cuemby/autoheal/pkg/config"
	"github.com/cuemby/autoheal/pkg/types"
)

// Store defines the interface for the append-only remediation history
type Store interface {
	// Append adds one record to the end of the history
	Append(rec types.Record) error

	// Records returns every record in append order
	Records() ([]types.Record, error)

	Close() error
}

// Open returns the Store for the configured backend rooted at dir
func Open(backend config.HistoryBackend, dir string) (Store, error) {
	switch backend {
	case config.HistoryFile, "":
		return NewFileStore(dir)
	case config.HistoryBolt:
		return NewBoltStore(dir)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", backend)
	}
}
