package query

import (
	"math"
	"net/url"
	"strconv"
	"testing"
	"time"

	"expensetracker/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.UTC)
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		page       string
		want       Page
		wantOffset int
	}{
		{"missing both", "", "", Page{}, 0},
		{"non numeric limit", "abc", "2", Page{}, 0},
		{"zero limit", "0", "3", Page{}, 0},
		{"negative limit", "-5", "1", Page{}, 0},
		{"limit without page", "10", "", Page{Number: 1, Limit: 10}, 0},
		{"bad page", "10", "x", Page{Number: 1, Limit: 10}, 0},
		{"second page", "2", "2", Page{Number: 2, Limit: 2}, 2},
		{"third page", "25", "3", Page{Number: 3, Limit: 25}, 50},
		{"limit above max", "5000", "2", Page{Number: 2, Limit: MaxLimit}, MaxLimit},
		{"largest page", "2", strconv.Itoa(math.MaxInt), Page{Number: math.MaxInt, Limit: 2}, maxOffset},
		{"page times limit overflows", "1000", strconv.Itoa(math.MaxInt / 500), Page{Number: math.MaxInt / 500, Limit: 1000}, maxOffset},
		{"page too large to parse", "2", "99999999999999999999999", Page{Number: 1, Limit: 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePage(tt.limit, tt.page)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOffset, got.Offset())
		})
	}
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSort(), s)

	s, err = ParseSort("-amount, category")
	require.NoError(t, err)
	assert.Equal(t, Sort{{Field: FieldAmount, Desc: true}, {Field: FieldCategory}}, s)
	assert.Equal(t, "-amount,category", s.String())

	_, err = ParseSort("password")
	assert.True(t, core.IsValidation(err))
	assert.ErrorIs(t, err, ErrInvalidSort)
}

func TestParseListParams(t *testing.T) {
	v := url.Values{}
	v.Set("category", "Food")
	v.Set("paymentMethod", "credit")
	v.Set("startDate", "2024-01-01")
	v.Set("endDate", "2024-01-31")
	v.Set("limit", "5")

	p, err := ParseListParams(v)
	require.NoError(t, err)
	assert.Equal(t, "Food", p.Category)
	assert.Equal(t, core.Credit, p.PaymentMethod)
	require.NotNil(t, p.StartDate)
	require.NotNil(t, p.EndDate)
	assert.True(t, p.StartDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.EndDate.After(time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)))
	assert.Equal(t, Page{Number: 1, Limit: 5}, p.Page)

	for _, bad := range []url.Values{
		{"paymentMethod": {"cheque"}},
		{"startDate": {"yesterday"}},
		{"endDate": {"31/01/2024"}},
		{"sort": {"-secret"}},
	} {
		_, err := ParseListParams(bad)
		assert.True(t, core.IsValidation(err), "expected validation error for %v", bad)
	}
}

func TestFilterMatch(t *testing.T) {
	jan := day(2024, 1, 15)
	feb := day(2024, 2, 1)
	e := core.Expense{OwnerID: "a", Category: "Food", PaymentMethod: core.Cash, CreatedAt: jan}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"owner only", ForOwner("a").Build(), true},
		{"other owner", ForOwner("b").Build(), false},
		{"category", ForOwner("a").Eq(FieldCategory, "Food").Build(), true},
		{"wrong category", ForOwner("a").Eq(FieldCategory, "Rent").Build(), false},
		{"method", ForOwner("a").Eq(FieldPaymentMethod, "credit").Build(), false},
		{"open start", ForOwner("a").Range(FieldCreatedAt, &jan, nil).Build(), true},
		{"open end before", ForOwner("a").Range(FieldCreatedAt, nil, &feb).Build(), true},
		{"start after", ForOwner("a").Range(FieldCreatedAt, &feb, nil).Build(), false},
		{"empty filter", Filter{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(e))
		})
	}
}

func TestRangeWithoutBoundsIsNoop(t *testing.T) {
	f := ForOwner("a").Range(FieldCreatedAt, nil, nil).Build()
	assert.Len(t, f.Clauses(), 1)
	assert.Equal(t, "a", f.Owner())
}

func TestQueryApplyPagination(t *testing.T) {
	var items []core.Expense
	for i := 1; i <= 5; i++ {
		items = append(items, core.Expense{ID: string(rune('0' + i)), Amount: float64(i), CreatedAt: day(2024, 1, i)})
	}

	q := ListParams{Sort: Sort{{Field: FieldAmount}}, Page: ParsePage("2", "2")}.Build("a")
	got := q.Apply(items)
	require.Len(t, got, 2)
	assert.Equal(t, 3.0, got[0].Amount)
	assert.Equal(t, 4.0, got[1].Amount)

	q = ListParams{Page: ParsePage("2", "9")}.Build("a")
	assert.Empty(t, q.Apply(items))

	q = ListParams{Page: ParsePage("2", strconv.Itoa(math.MaxInt))}.Build("a")
	assert.NotPanics(t, func() { assert.Empty(t, q.Apply(items)) })

	q = ListParams{Page: Page{Number: 3, Limit: -2}}.Build("a")
	assert.NotPanics(t, func() { q.Apply(items) })

	q = ListParams{}.Build("a")
	all := q.Apply(items)
	require.Len(t, all, 5)
	assert.Equal(t, 5.0, all[0].Amount, "default sort is newest first")
}
