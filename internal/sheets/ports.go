package sheets

import (
	"context"
	"errors"

	"bisky/internal/core"
)

var ErrNotInitialized = errors.New("sheets service not initialized")

// Ports for outbound adapters.
type (
	// Mirror keeps an external copy of the whole ledger table.
	Mirror interface {
		// Replace overwrites the mirrored table with rows, header first.
		Replace(ctx context.Context, rows []core.Entry) error
	}
)
