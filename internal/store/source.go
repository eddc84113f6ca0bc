// Package store persists date-keyed day values. Every backend implements
// Source; the view coordinator and the daemon only see that interface.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

// Source is the record store boundary: fetch everything, upsert one day.
type Source interface {
	FetchAll(ctx context.Context) ([]core.Record, error)
	Upsert(ctx context.Context, dateKey string, value *float64) (core.UpsertResult, error)
}

// Closer is implemented by sources holding connections.
type Closer interface {
	Close() error
}

// validateKey rejects keys that are not exact "yyyy-MM-dd" dates.
func validateKey(dateKey string) error {
	if strings.TrimSpace(dateKey) != dateKey {
		return fmt.Errorf("%w %q", core.ErrInvalidDateKey, dateKey)
	}
	_, err := core.ParseDateKey(dateKey)
	return err
}

func success(action string) core.UpsertResult {
	return core.UpsertResult{Status: core.UpsertStatusSuccess, Action: action}
}
