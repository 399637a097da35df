package ledger

import (
	"sort"
	"time"

	"moneta/internal/core"
)

const (
	PeriodMonth PeriodKind = "month"
	PeriodYear  PeriodKind = "year"
	PeriodAll   PeriodKind = "all"
	PeriodRange PeriodKind = "range"
)

type (
	PeriodKind string

	// Period selects transactions by inclusive date interval.
	Period struct {
		Kind  PeriodKind
		Year  int
		Month time.Month
		Start core.Date // range only
		End   core.Date // range only
	}

	// Stats are the period totals. Expense, Fixed and Variable are unsigned
	// magnitudes; Balance is income minus expense.
	Stats struct {
		Income   core.Money
		Expense  core.Money
		Balance  core.Money
		Fixed    core.Money // recurring expenses
		Variable core.Money // everything else
	}

	CategoryAmount struct {
		CategoryID string
		Name       string
		Amount     core.Money
	}
)

func MonthPeriod(year int, month time.Month) Period {
	return Period{Kind: PeriodMonth, Year: year, Month: month}
}

func YearPeriod(year int) Period {
	return Period{Kind: PeriodYear, Year: year}
}

func AllPeriod() Period {
	return Period{Kind: PeriodAll}
}

func RangePeriod(start, end core.Date) Period {
	return Period{Kind: PeriodRange, Start: start, End: end}
}

// Contains reports whether a date falls inside the period, bounds inclusive.
func (p Period) Contains(d core.Date) bool {
	switch p.Kind {
	case PeriodMonth:
		return d.Year() == p.Year && d.Month() == p.Month
	case PeriodYear:
		return d.Year() == p.Year
	case PeriodRange:
		if !p.Start.IsEmpty() && d.Before(p.Start.Time) {
			return false
		}
		if !p.End.IsEmpty() && d.After(p.End.Time) {
			return false
		}
		return true
	default:
		return true
	}
}

// ComputeStats sums income, expense, and the fixed/variable expense split for
// the transactions inside the period. Expense sums use absolute values.
func ComputeStats(transactions []core.Transaction, period Period) Stats {
	var s Stats
	for _, tx := range transactions {
		if !period.Contains(tx.Date) {
			continue
		}
		switch tx.Type {
		case core.Income:
			s.Income.Cents += tx.Amount.Cents
		case core.Expense:
			abs := tx.Amount.Abs().Cents
			s.Expense.Cents += abs
			if tx.IsRecurring {
				s.Fixed.Cents += abs
			}
		}
	}
	s.Variable.Cents = s.Expense.Cents - s.Fixed.Cents
	s.Balance.Cents = s.Income.Cents - s.Expense.Cents
	return s
}

// CategoryDistribution groups the period's expenses by category, summing
// absolute amounts, sorted by amount descending. Transactions whose category
// no longer exists are reported under "unassigned"; the fallback is for
// display only and never rewrites the transaction.
func CategoryDistribution(transactions []core.Transaction, categories []core.Category, period Period) []CategoryAmount {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	totals := make(map[string]int64)
	for _, tx := range transactions {
		if tx.Type != core.Expense || !period.Contains(tx.Date) {
			continue
		}
		id := tx.CategoryID
		if _, known := names[id]; !known {
			id = core.UnassignedCategoryID
		}
		totals[id] += tx.Amount.Abs().Cents
	}

	out := make([]CategoryAmount, 0, len(totals))
	for id, cents := range totals {
		out = append(out, CategoryAmount{
			CategoryID: id,
			Name:       names[id],
			Amount:     core.Money{Cents: cents},
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}
