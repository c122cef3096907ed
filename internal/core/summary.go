package core

// MonthlyTotal is the sum of an owner's expenses created in one calendar month (UTC).
type MonthlyTotal struct {
	Year          int     `json:"year"`
	Month         int     `json:"month"` // 1-12
	TotalExpenses float64 `json:"totalExpenses"`
}

// CategoryTotal is the sum of an owner's expenses in one category.
type CategoryTotal struct {
	Category      string  `json:"category"`
	TotalExpenses float64 `json:"totalExpenses"`
}
