package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the on-disk and wire format of ledger dates.
const DateLayout = "2006-01-02"

// Yesterday is accepted wherever a date string is parsed.
const Yesterday = "yesterday"

const (
	Breakfast Preset = "Breakfast"
	Lunch     Preset = "Lunch"
	Dinner    Preset = "Dinner"
	Coffee    Preset = "Coffee"
	Food      Preset = "Food"
)

type (
	// Preset is a fixed category used by the meal shortcuts.
	Preset string

	Date struct {
		time.Time
	}

	// Entry is one ledger transaction. Balance is only set once the entry
	// has been placed in a ledger, or when the caller supplies it.
	Entry struct {
		Date     Date
		Category string
		Credit   decimal.Decimal
		Debit    decimal.Decimal
		Remark   string
		Balance  decimal.NullDecimal
	}

	// Clock reports the current time. Tests pin it.
	Clock interface {
		Now() time.Time
	}

	systemClock struct{}

	// FixedClock always reports the same instant.
	FixedClock time.Time
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownPreset = errors.New("unknown preset")
)

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

func (c FixedClock) Now() time.Time { return time.Time(c) }

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the calendar day of clock.
func Today(clock Clock) Date {
	if clock == nil {
		clock = SystemClock
	}
	return DateOf(clock.Now())
}

// ParseDate parses an ISO date or the literal "yesterday", relative to today.
func ParseDate(s string, today Date) (Date, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, Yesterday) {
		return today.AddDays(-1), nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays moves the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time.AddDate(0, 0, n))
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// IsEmpty returns true if the date is zero (for backward compatibility with optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewEntry builds an entry. A zero date means today; a nil balance is
// derived when the entry is added to a ledger.
func NewEntry(date Date, category string, credit, debit decimal.Decimal, remark string, balance *decimal.Decimal) Entry {
	e := Entry{
		Date:     date,
		Category: category,
		Credit:   credit,
		Debit:    debit,
		Remark:   remark,
	}
	if balance != nil {
		e.Balance = decimal.NewNullDecimal(*balance)
	}
	return e
}

// SeedEntry is row 0 of every ledger: the starting balance and nothing else.
func SeedEntry(date Date, balance decimal.Decimal) Entry {
	return Entry{
		Date:    date,
		Credit:  decimal.Zero,
		Debit:   decimal.Zero,
		Balance: decimal.NewNullDecimal(balance.Round(2)),
	}
}

// Delta is the signed effect of the entry on the running balance.
func (e Entry) Delta() decimal.Decimal {
	return e.Credit.Sub(e.Debit)
}

// Presets lists the meal shortcuts in display order.
func Presets() []Preset {
	return []Preset{Breakfast, Lunch, Dinner, Coffee, Food}
}

// PresetByName resolves a case-insensitive preset name such as "lunch".
func PresetByName(name string) (Preset, error) {
	name = strings.TrimSpace(name)
	for _, p := range Presets() {
		if strings.EqualFold(name, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// Meal builds a debit entry whose category and remark are the preset label.
// Food is the generic meal; use FoodEntry to give it a remark.
func Meal(p Preset, debit decimal.Decimal, date Date) Entry {
	return Entry{
		Date:     date,
		Category: string(p),
		Credit:   decimal.Zero,
		Debit:    debit,
		Remark:   string(p),
	}
}

// FoodEntry is a Food debit with a free-text remark.
func FoodEntry(debit decimal.Decimal, remark string, date Date) Entry {
	e := Meal(Food, debit, date)
	if strings.TrimSpace(remark) != "" {
		e.Remark = remark
	}
	return e
}
