package query

import (
	"errors"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"
)

var ErrInvalidDate = errors.New("date must be RFC3339 or YYYY-MM-DD")

const dateOnly = "2006-01-02"

// MaxLimit caps the page size a caller may ask for.
const MaxLimit = 1000

// maxOffset keeps skip values representable by every store and platform.
const maxOffset = math.MaxInt32

// Page is a 1-based page of Limit records. Limit 0 means unpaginated.
type Page struct {
	Number int
	Limit  int
}

// Paginated reports whether a limit applies.
func (p Page) Paginated() bool {
	return p.Limit > 0
}

// Offset is the number of records to skip, capped at maxOffset. Pages past
// the cap simply come back empty.
func (p Page) Offset() int {
	if !p.Paginated() || p.Number <= 1 {
		return 0
	}
	if p.Number-1 > maxOffset/p.Limit {
		return maxOffset
	}
	return (p.Number - 1) * p.Limit
}

// ParsePage reads the raw limit and page parameters. A missing, non-numeric
// or non-positive limit disables pagination and a limit above MaxLimit is
// lowered to it; a bad page falls back to 1.
func ParsePage(limit, page string) Page {
	l, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil || l <= 0 {
		return Page{}
	}
	l = min(l, MaxLimit)
	n, err := strconv.Atoi(strings.TrimSpace(page))
	if err != nil || n < 1 {
		n = 1
	}
	return Page{Number: n, Limit: l}
}

// Query is a compiled list request handed to a store.
type Query struct {
	Filter Filter
	Sort   Sort
	Page   Page
}

// ListParams are the optional list parameters of the query engine.
type ListParams struct {
	Category      string
	PaymentMethod core.PaymentMethod
	StartDate     *time.Time
	EndDate       *time.Time
	Sort          Sort
	Page          Page
}

// ParseListParams reads list parameters from URL query values.
func ParseListParams(v url.Values) (ListParams, error) {
	var p ListParams

	p.Category = strings.TrimSpace(v.Get("category"))

	if raw := strings.TrimSpace(v.Get("paymentMethod")); raw != "" {
		pm, err := core.ParsePaymentMethod(raw)
		if err != nil {
			return ListParams{}, &core.ValidationError{Field: "paymentMethod", Err: err}
		}
		p.PaymentMethod = pm
	}

	var err error
	if p.StartDate, err = parseBound(v.Get("startDate"), false); err != nil {
		return ListParams{}, &core.ValidationError{Field: "startDate", Err: err}
	}
	if p.EndDate, err = parseBound(v.Get("endDate"), true); err != nil {
		return ListParams{}, &core.ValidationError{Field: "endDate", Err: err}
	}

	if p.Sort, err = ParseSort(v.Get("sort")); err != nil {
		return ListParams{}, err
	}

	p.Page = ParsePage(v.Get("limit"), v.Get("page"))
	return p, nil
}

// parseBound parses a date bound. A date-only end bound covers the whole day.
func parseBound(raw string, end bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// Build compiles the parameters into an owner-scoped query.
func (p ListParams) Build(ownerID string) Query {
	b := ForOwner(ownerID)
	if p.Category != "" {
		b.Eq(FieldCategory, p.Category)
	}
	if p.PaymentMethod != "" {
		b.Eq(FieldPaymentMethod, string(p.PaymentMethod))
	}
	b.Range(FieldCreatedAt, p.StartDate, p.EndDate)

	sort := p.Sort
	if len(sort) == 0 {
		sort = DefaultSort()
	}
	return Query{Filter: b.Build(), Sort: sort, Page: p.Page}
}

// Apply sorts and paginates an already filtered slice in place and returns
// the page. Used by stores that evaluate queries in memory.
func (q Query) Apply(items []core.Expense) []core.Expense {
	slices.SortStableFunc(items, q.Sort.Compare)
	offset := q.Page.Offset()
	if offset < 0 || offset >= len(items) {
		return []core.Expense{}
	}
	items = items[offset:]
	if q.Page.Paginated() && q.Page.Limit < len(items) {
		items = items[:q.Page.Limit]
	}
	return items
}
