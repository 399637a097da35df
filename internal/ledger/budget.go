package ledger

import (
	"math"
	"sort"
	"time"

	"moneta/internal/core"
)

// Months of history feeding the rolling average. The divisor is fixed: months
// with no transactions count as zero rather than shrinking the denominator.
const rollingWindowMonths = 12

type (
	// BudgetStatus is the budget-vs-actual view for one category in the
	// current calendar month.
	BudgetStatus struct {
		CategoryID string
		Name       string
		Spent      core.Money
		Budget     core.Money // zero when no budget is set
		Remaining  core.Money // budget - spent, may go negative
		IsOver     bool
		Projected  core.Money // linear run-rate to month end
		WillExceed bool
	}

	ForecastMonth struct {
		Year       int
		Month      time.Month
		Categories []CategoryAmount
		Total      core.Money
	}
)

// isAdministrative filters the reserved categories out of budget tracking.
func isAdministrative(categoryID string) bool {
	return categoryID == core.UnassignedCategoryID || categoryID == core.IncomeCategoryID
}

// RunRate linearly extrapolates month-end spend from spend so far: uniform
// daily spend is assumed, deliberately ignoring seasonality.
func RunRate(spentCents int64, ref time.Time) int64 {
	day := ref.Day()
	if day < 1 {
		day = 1
	}
	dim := daysInMonth(ref.Year(), ref.Month())
	return int64(math.Round(float64(spentCents) / float64(day) * float64(dim)))
}

// ComputeBudgetStatus reports budget-vs-actual for the calendar month of ref,
// for every non-administrative category. Categories without a budget appear
// with a zero budget so the UI can still show their spend.
func ComputeBudgetStatus(transactions []core.Transaction, categories []core.Category, budgets []core.Budget, ref time.Time) []BudgetStatus {
	budgetByCat := make(map[string]int64, len(budgets))
	for _, b := range budgets {
		budgetByCat[b.CategoryID] = b.Amount.Cents
	}

	period := MonthPeriod(ref.Year(), ref.Month())
	spent := make(map[string]int64)
	for _, tx := range transactions {
		if tx.Type != core.Expense || !period.Contains(tx.Date) {
			continue
		}
		spent[tx.CategoryID] += tx.Amount.Abs().Cents
	}

	var out []BudgetStatus
	for _, c := range categories {
		if isAdministrative(c.ID) {
			continue
		}
		s := spent[c.ID]
		b := budgetByCat[c.ID]
		projected := RunRate(s, ref)
		out = append(out, BudgetStatus{
			CategoryID: c.ID,
			Name:       c.Name,
			Spent:      core.Money{Cents: s},
			Budget:     core.Money{Cents: b},
			Remaining:  core.Money{Cents: b - s},
			IsOver:     b > 0 && s > b,
			Projected:  core.Money{Cents: projected},
			WillExceed: b > 0 && projected > b,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

// RollingAverage returns the mean monthly expense total (cents) for a category
// over the trailing 12 complete months ending the month before ref. The
// current partial month is excluded to avoid run-rate bias.
func RollingAverage(transactions []core.Transaction, categoryID string, ref time.Time) int64 {
	windowStart := monthStart(ref.AddDate(0, -rollingWindowMonths, 0))
	windowEnd := monthStart(ref) // exclusive

	var sum int64
	for _, tx := range transactions {
		if tx.Type != core.Expense || tx.CategoryID != categoryID {
			continue
		}
		d := tx.Date.Time
		if d.Before(windowStart) || !d.Before(windowEnd) {
			continue
		}
		sum += tx.Amount.Abs().Cents
	}
	return int64(math.Round(float64(sum) / float64(rollingWindowMonths)))
}

// Forecast projects per-category expenses for the next four months including
// the current one. Month 0 uses the run-rate projection; months 1-3 use
// max(rolling average, budget) per category, a conservative planning floor
// that never projects below a committed budget.
func Forecast(transactions []core.Transaction, categories []core.Category, budgets []core.Budget, ref time.Time) []ForecastMonth {
	budgetByCat := make(map[string]int64, len(budgets))
	for _, b := range budgets {
		budgetByCat[b.CategoryID] = b.Amount.Cents
	}

	currentPeriod := MonthPeriod(ref.Year(), ref.Month())
	spent := make(map[string]int64)
	for _, tx := range transactions {
		if tx.Type != core.Expense || !currentPeriod.Contains(tx.Date) {
			continue
		}
		spent[tx.CategoryID] += tx.Amount.Abs().Cents
	}

	out := make([]ForecastMonth, 0, 4)
	for i := 0; i < 4; i++ {
		m := monthStart(ref).AddDate(0, i, 0)
		fm := ForecastMonth{Year: m.Year(), Month: m.Month()}
		for _, c := range categories {
			if isAdministrative(c.ID) {
				continue
			}
			var cents int64
			if i == 0 {
				cents = RunRate(spent[c.ID], ref)
			} else {
				cents = RollingAverage(transactions, c.ID, ref)
				if b := budgetByCat[c.ID]; b > cents {
					cents = b
				}
			}
			if cents == 0 {
				continue
			}
			fm.Categories = append(fm.Categories, CategoryAmount{
				CategoryID: c.ID,
				Name:       c.Name,
				Amount:     core.Money{Cents: cents},
			})
			fm.Total.Cents += cents
		}
		out = append(out, fm)
	}
	return out
}
