package ledger

import (
	"context"

	"bisky/internal/core"
)

// Ports for the ledger's collaborators.
type (
	// Store persists the whole table. Save replaces everything previously
	// stored; Load returns rows in table order.
	Store interface {
		Load(ctx context.Context) ([]core.Entry, error)
		Save(ctx context.Context, rows []core.Entry) error
	}

	// Initializer is implemented by stores that can tell whether a ledger
	// exists yet and create one from its seed row.
	Initializer interface {
		Exists(ctx context.Context) (bool, error)
		Init(ctx context.Context, seed core.Entry) error
	}

	// Confirmer asks the user a yes/no question.
	Confirmer interface {
		Confirm(question string) (bool, error)
	}
)

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(question string) (bool, error)

func (f ConfirmFunc) Confirm(question string) (bool, error) { return f(question) }
