package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// Reserved category identifiers. "unassigned" absorbs transactions and budgets
// whose category was deleted; "income" is the administrative bucket for salary
// and other inflows. Neither participates in budget tracking.
const (
	UnassignedCategoryID = "unassigned"
	IncomeCategoryID     = "income"
)

type (
	TxType string

	// Date is a calendar date with no time component, normalized to UTC midnight.
	Date struct {
		time.Time
	}

	// Money is an amount in integer cents. Transactions carry signed cents
	// (negative = expense), templates carry unsigned magnitudes.
	Money struct {
		Cents int64
	}

	Category struct {
		ID    string
		Name  string
		Color string
	}

	Transaction struct {
		ID          string
		Date        Date
		Description string
		Amount      Money // signed: negative for expenses, positive for income
		CategoryID  string
		Type        TxType
		IsRecurring bool
		RecurringID string // set only on materialized transactions
	}

	RecurringTemplate struct {
		ID          string
		Description string
		Amount      Money // unsigned magnitude; sign is applied on materialization
		CategoryID  string
		Type        TxType
		DayOfMonth  int // 1-31, clamped to the last valid day of short months
		Active      bool
		StartDate   Date // zero = unbounded within the scan horizon
		EndDate     Date // zero = unbounded
	}

	Budget struct {
		CategoryID string
		Amount     Money // unsigned monthly target
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidDay       = errors.New("invalid day of month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrSignMismatch     = errors.New("amount sign does not match transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty reports whether the date is unset (optional template bounds).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (t TxType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

// Sign applies the type's sign convention to an unsigned magnitude.
func (t TxType) Sign(magnitude Money) Money {
	if t == Expense {
		return Money{Cents: -magnitude.Cents}
	}
	return magnitude
}

// Abs returns the unsigned magnitude.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (tx Transaction) Validate() error {
	if err := tx.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if tx.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if tx.Type == Expense && tx.Amount.Cents > 0 {
		return ErrSignMismatch
	}
	if tx.Type == Income && tx.Amount.Cents < 0 {
		return ErrSignMismatch
	}
	if strings.TrimSpace(tx.CategoryID) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (tpl RecurringTemplate) Validate() error {
	if len(strings.TrimSpace(tpl.Description)) == 0 {
		return ErrEmptyDescription
	}
	if tpl.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if err := tpl.Type.Validate(); err != nil {
		return err
	}
	if tpl.DayOfMonth < 1 || tpl.DayOfMonth > 31 {
		return ErrInvalidDay
	}
	if strings.TrimSpace(tpl.CategoryID) == "" {
		return ErrEmptyCategory
	}
	// An inverted start/end range is valid degenerate input: the template
	// simply never materializes.
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if b.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
