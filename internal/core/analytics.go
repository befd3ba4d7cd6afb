package core

import (
	"sort"
	"time"
)

type (
	// Window is a half-open time range [Start, End) selecting the expenses
	// for the window-scoped parts of a report.
	Window struct {
		Start time.Time
		End   time.Time
	}

	// CategoryTotal is the approved spend of one category inside the window.
	CategoryTotal struct {
		Category string
		Amount   Money
	}

	// ContributorStat is one member's approved activity inside the window.
	ContributorStat struct {
		MemberID  string
		Purchases int
		Total     Money
	}

	// MonthlyBucket is one entry of the six-month trailing trend.
	MonthlyBucket struct {
		Year  int
		Month time.Month
		Total Money
	}

	// CategoryShare is a category's slice of the window's approved total.
	CategoryShare struct {
		Category string
		Amount   Money
		Percent  float64
	}

	// Pace summarizes recent spending velocity over the approved ledger.
	// DeltaPercent is nil when there is no prior-30-day data to compare
	// against; reporting "no prior data" beats reporting infinity.
	Pace struct {
		Last7Total   Money
		AvgDaily7    float64
		Projected30  float64
		Last30Total  Money
		Prev30Total  Money
		Delta        Money
		DeltaPercent *float64
	}

	// Highlights are single-fact callouts over the all-time approved set.
	Highlights struct {
		Largest              *Expense
		TopCategory          string
		TopContributor       string
		MostFrequentCategory string
		LatestApproved       *Expense
	}

	// StatusBreakdown counts and totals the full ledger by status. Expenses
	// with unparseable dates still land here; only date-bucketed views skip
	// them.
	StatusBreakdown struct {
		ApprovedCount int
		PendingCount  int
		RejectedCount int
		ApprovedTotal Money
		PendingTotal  Money
		RejectedTotal Money
	}

	// Report is the full analytics view for one room: the window-scoped
	// breakdowns plus the all-time trend, pace and highlights.
	Report struct {
		Window              Window
		Categories          []CategoryTotal
		Contributors        []ContributorStat
		ApprovalRate        float64
		WindowApprovedTotal Money
		WindowAvgExpense    float64
		MonthlyTrend        []MonthlyBucket
		Pace                Pace
		Highlights          Highlights
		CategoryShare       []CategoryShare
		Totals              StatusBreakdown
	}
)

// trendMonths is the fixed size of the trailing monthly trend.
const trendMonths = 6

// topShareCategories is how many categories keep their own share slice
// before the rest collapse into "Other".
const topShareCategories = 5

// MonthWindow selects one calendar month.
func MonthWindow(year int, month time.Month) Window {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// ComputeAnalytics derives the full report from a ledger snapshot. now
// anchors the trailing views (monthly trend, pace) and is injected rather
// than read from the clock so the aggregation stays a pure function.
func ComputeAnalytics(expenses []Expense, w Window, now time.Time) Report {
	report := Report{
		Window: w,
		Totals: statusBreakdown(expenses),
	}

	approved := Approved(expenses)

	var windowAll, windowApproved []Expense
	for _, e := range expenses {
		date, ok := ParseExpenseDate(e.Date)
		if !ok || !w.Contains(date) {
			continue
		}
		windowAll = append(windowAll, e)
		if e.Status == StatusApproved {
			windowApproved = append(windowApproved, e)
		}
	}

	report.Categories = categoryTotals(windowApproved)
	report.Contributors = contributorStats(windowApproved)
	report.CategoryShare = categoryShare(report.Categories)
	report.WindowApprovedTotal = sumAmounts(windowApproved)
	if len(windowApproved) > 0 {
		report.WindowAvgExpense = report.WindowApprovedTotal.Units() / float64(len(windowApproved))
	}
	if len(windowAll) > 0 {
		report.ApprovalRate = float64(len(windowApproved)) / float64(len(windowAll)) * 100
	}

	report.MonthlyTrend = monthlyTrend(approved, now)
	report.Pace = spendingPace(approved, now)
	report.Highlights = highlights(approved, report.Categories, report.Contributors)

	return report
}

func sumAmounts(expenses []Expense) Money {
	var total int64
	for _, e := range expenses {
		total += e.Amount.Cents
	}
	return Money{Cents: total}
}

func statusBreakdown(expenses []Expense) StatusBreakdown {
	var b StatusBreakdown
	for _, e := range expenses {
		switch e.Status {
		case StatusApproved:
			b.ApprovedCount++
			b.ApprovedTotal.Cents += e.Amount.Cents
		case StatusPending:
			b.PendingCount++
			b.PendingTotal.Cents += e.Amount.Cents
		case StatusRejected:
			b.RejectedCount++
			b.RejectedTotal.Cents += e.Amount.Cents
		}
	}
	return b
}

// categoryTotals groups by category and sorts by amount descending. The sort
// is stable over first-encountered order, which is the documented tie rule.
func categoryTotals(expenses []Expense) []CategoryTotal {
	totals := make(map[string]int64)
	var order []string
	for _, e := range expenses {
		if _, seen := totals[e.Category]; !seen {
			order = append(order, e.Category)
		}
		totals[e.Category] += e.Amount.Cents
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, category := range order {
		out = append(out, CategoryTotal{Category: category, Amount: Money{Cents: totals[category]}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

func contributorStats(expenses []Expense) []ContributorStat {
	stats := make(map[string]*ContributorStat)
	var order []string
	for _, e := range expenses {
		st, seen := stats[e.AddedBy]
		if !seen {
			st = &ContributorStat{MemberID: e.AddedBy}
			stats[e.AddedBy] = st
			order = append(order, e.AddedBy)
		}
		st.Purchases++
		st.Total.Cents += e.Amount.Cents
	}

	out := make([]ContributorStat, 0, len(order))
	for _, id := range order {
		out = append(out, *stats[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total.Cents > out[j].Total.Cents
	})
	return out
}

// categoryShare normalizes the sorted category totals to percentages of the
// window total, keeping the top five and folding the remainder into "Other".
// A zero-sum "Other" is omitted entirely.
func categoryShare(categories []CategoryTotal) []CategoryShare {
	var windowTotal int64
	for _, c := range categories {
		windowTotal += c.Amount.Cents
	}

	kept := categories
	var otherCents int64
	if len(categories) > topShareCategories {
		kept = categories[:topShareCategories]
		for _, c := range categories[topShareCategories:] {
			otherCents += c.Amount.Cents
		}
	}

	out := make([]CategoryShare, 0, len(kept)+1)
	for _, c := range kept {
		out = append(out, CategoryShare{
			Category: c.Category,
			Amount:   c.Amount,
			Percent:  percentOf(c.Amount.Cents, windowTotal),
		})
	}
	if otherCents > 0 {
		out = append(out, CategoryShare{
			Category: "Other",
			Amount:   Money{Cents: otherCents},
			Percent:  percentOf(otherCents, windowTotal),
		})
	}
	return out
}

func percentOf(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// monthlyTrend buckets the all-time approved spend into the current month
// and the five before it, oldest first. Empty months report zero rather than
// being absent so the series always has exactly six points.
func monthlyTrend(approved []Expense, now time.Time) []MonthlyBucket {
	buckets := make([]MonthlyBucket, trendMonths)
	index := make(map[string]int, trendMonths)
	for i := 0; i < trendMonths; i++ {
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, i-(trendMonths-1), 0)
		buckets[i] = MonthlyBucket{Year: month.Year(), Month: month.Month()}
		index[monthKey(month)] = i
	}

	for _, e := range approved {
		date, ok := ParseExpenseDate(e.Date)
		if !ok {
			continue
		}
		if i, found := index[monthKey(date)]; found {
			buckets[i].Total.Cents += e.Amount.Cents
		}
	}
	return buckets
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

func spendingPace(approved []Expense, now time.Time) Pace {
	last7Start := now.AddDate(0, 0, -7)
	last30Start := now.AddDate(0, 0, -30)
	prev30Start := now.AddDate(0, 0, -60)

	var pace Pace
	for _, e := range approved {
		date, ok := ParseExpenseDate(e.Date)
		if !ok {
			continue
		}
		if !date.Before(last7Start) {
			pace.Last7Total.Cents += e.Amount.Cents
		}
		switch {
		case !date.Before(last30Start):
			pace.Last30Total.Cents += e.Amount.Cents
		case !date.Before(prev30Start):
			pace.Prev30Total.Cents += e.Amount.Cents
		}
	}

	pace.AvgDaily7 = pace.Last7Total.Units() / 7
	pace.Projected30 = pace.AvgDaily7 * 30
	pace.Delta = Money{Cents: pace.Last30Total.Cents - pace.Prev30Total.Cents}
	if pace.Prev30Total.Cents > 0 {
		percent := pace.Delta.Units() / pace.Prev30Total.Units() * 100
		pace.DeltaPercent = &percent
	}
	return pace
}

// highlights picks the single-fact callouts. Ties everywhere resolve to the
// first-encountered expense, matching the strict comparisons below.
func highlights(approved []Expense, categories []CategoryTotal, contributors []ContributorStat) Highlights {
	var h Highlights

	if len(categories) > 0 {
		h.TopCategory = categories[0].Category
	}
	if len(contributors) > 0 {
		h.TopContributor = contributors[0].MemberID
	}

	counts := make(map[string]int)
	var countOrder []string
	for _, e := range approved {
		if _, seen := counts[e.Category]; !seen {
			countOrder = append(countOrder, e.Category)
		}
		counts[e.Category]++
	}
	best := 0
	for _, category := range countOrder {
		if counts[category] > best {
			best = counts[category]
			h.MostFrequentCategory = category
		}
	}

	var latestDate time.Time
	for i := range approved {
		e := approved[i]
		if h.Largest == nil || e.Amount.Cents > h.Largest.Amount.Cents {
			h.Largest = &approved[i]
		}
		date, ok := ParseExpenseDate(e.Date)
		if !ok {
			continue
		}
		if h.LatestApproved == nil || date.After(latestDate) {
			h.LatestApproved = &approved[i]
			latestDate = date
		}
	}
	return h
}
