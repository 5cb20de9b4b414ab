package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts are plain JSON numbers on the wire
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	OrderByCreatedAt = "created_at"
	OrderByDate      = "date"
	OrderByAmount    = "amount"

	OrderAsc  = "asc"
	OrderDesc = "desc"

	DefaultPage  = 1
	DefaultLimit = 10
	// MaxLimit caps the page size; larger requests get MaxLimit rows.
	MaxLimit = 100
)

// QuerySpec is a validated set of filter, sort and paging parameters for listing transactions.
type QuerySpec struct {
	Type      *TransactionType
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
	OrderBy   string
	Order     string
}

// Offset is the zero-based index of the first row of the page. Pages too far
// out to be addressed saturate at math.MaxInt, which is past any table.
func (q QuerySpec) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

type Period string

const (
	PeriodAll      Period = ""
	PeriodWeek     Period = "week"
	PeriodMonth    Period = "month"
	PeriodBimester Period = "bimester"
	PeriodSemester Period = "semester"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodAll, PeriodWeek, PeriodMonth, PeriodBimester, PeriodSemester:
		return true
	}
	return false
}

// Since returns the lower bound of the window ending at now, or nil for PeriodAll.
func (p Period) Since(now time.Time) *time.Time {
	var start time.Time
	switch p {
	case PeriodWeek:
		start = now.AddDate(0, 0, -7)
	case PeriodMonth:
		start = now.AddDate(0, -1, 0)
	case PeriodBimester:
		start = now.AddDate(0, -2, 0)
	case PeriodSemester:
		start = now.AddDate(0, -6, 0)
	default:
		return nil
	}
	return &start
}

func (p Period) String() string {
	if p == PeriodAll {
		return "all"
	}
	return string(p)
}
