package core

import (
	"errors"
	"testing"
)

func validTransaction() Transaction {
	return Transaction{
		ID:          "tx-1",
		Date:        NewDate(2024, 6, 5),
		Description: "Groceries",
		Amount:      Money{Cents: -4200},
		CategoryID:  "food",
		Type:        Expense,
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr error
	}{
		{"valid expense", func(tx *Transaction) {}, nil},
		{"valid income", func(tx *Transaction) {
			tx.Type = Income
			tx.Amount.Cents = 4200
		}, nil},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"blank description", func(tx *Transaction) { tx.Description = "  " }, ErrEmptyDescription},
		{"zero amount", func(tx *Transaction) { tx.Amount.Cents = 0 }, ErrInvalidAmount},
		{"positive expense", func(tx *Transaction) { tx.Amount.Cents = 4200 }, ErrSignMismatch},
		{"negative income", func(tx *Transaction) { tx.Type = Income }, ErrSignMismatch},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"empty category", func(tx *Transaction) { tx.CategoryID = "" }, ErrEmptyCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecurringTemplateValidate(t *testing.T) {
	valid := RecurringTemplate{
		ID:          "t1",
		Description: "Rent",
		Amount:      Money{Cents: 120000},
		CategoryID:  "housing",
		Type:        Expense,
		DayOfMonth:  1,
		Active:      true,
	}

	tests := []struct {
		name    string
		mutate  func(*RecurringTemplate)
		wantErr error
	}{
		{"valid", func(tpl *RecurringTemplate) {}, nil},
		{"day zero", func(tpl *RecurringTemplate) { tpl.DayOfMonth = 0 }, ErrInvalidDay},
		{"day 32", func(tpl *RecurringTemplate) { tpl.DayOfMonth = 32 }, ErrInvalidDay},
		{"day 31 allowed", func(tpl *RecurringTemplate) { tpl.DayOfMonth = 31 }, nil},
		{"negative amount", func(tpl *RecurringTemplate) { tpl.Amount.Cents = -1 }, ErrInvalidAmount},
		{"blank description", func(tpl *RecurringTemplate) { tpl.Description = "" }, ErrEmptyDescription},
		{"inverted range still valid", func(tpl *RecurringTemplate) {
			tpl.StartDate = NewDate(2024, 8, 1)
			tpl.EndDate = NewDate(2024, 2, 1)
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := valid
			tt.mutate(&tpl)
			err := tpl.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTxTypeSign(t *testing.T) {
	if got := Expense.Sign(Money{Cents: 100}); got.Cents != -100 {
		t.Errorf("Expense.Sign(100) = %d, want -100", got.Cents)
	}
	if got := Income.Sign(Money{Cents: 100}); got.Cents != 100 {
		t.Errorf("Income.Sign(100) = %d, want 100", got.Cents)
	}
}
