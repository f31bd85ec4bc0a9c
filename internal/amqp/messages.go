package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// EventKind names the ledger mutation an event reports.
type EventKind string

const (
	KindEntryAdded     EventKind = "entry_added"
	KindEntriesRemoved EventKind = "entries_removed"
	KindLedgerCleared  EventKind = "ledger_cleared"
)

// LedgerEvent is a lightweight notification that the ledger changed.
// It carries no rows: consumers reload the store themselves.
type LedgerEvent struct {
	ID        string          `json:"id"`
	Kind      EventKind       `json:"kind"`
	Balance   decimal.Decimal `json:"balance"`
	Rows      int             `json:"rows"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewLedgerEvent stamps a new event with a ULID taken at now.
func NewLedgerEvent(kind EventKind, balance decimal.Decimal, rows int, now time.Time) *LedgerEvent {
	return &LedgerEvent{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Kind:      kind,
		Balance:   balance,
		Rows:      rows,
		Timestamp: now.UTC(),
	}
}

// Valid reports whether the kind is one this version understands.
func (k EventKind) Valid() bool {
	switch k {
	case KindEntryAdded, KindEntriesRemoved, KindLedgerCleared:
		return true
	}
	return false
}

// ToJSON converts the event to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event and rejects unknown kinds.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", msg.Kind)
	}
	return &msg, nil
}
