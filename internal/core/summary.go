package core

// CategorySum holds the per-category aggregate over a date window.
type CategorySum struct {
	Category string
	Count    int64
	Sum      int64
}

// MonthSummary is the aggregate for a single requested month. The window is
// clamped so it never extends past the present instant; AveragePerDay divides
// the total by elapsed calendar days in the clamped window, not by entry
// count.
type MonthSummary struct {
	Year          int
	Month         int // 1-12
	TotalCount    int64
	TotalSum      int64
	AveragePerDay float64
	ByCategory    map[string]CategorySum
}
