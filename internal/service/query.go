package service

import (
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finance/internal/models"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC3339 timestamps, timestamps without zone (read as UTC)
// and plain dates. dateOnly reports whether the value had no time part.
func ParseDate(value string) (t time.Time, dateOnly bool, err error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err = time.Parse(layout, value); err == nil {
			return t.UTC(), layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, Validation("invalid date %q, use RFC3339 or YYYY-MM-DD", value)
}

// ParseQuerySpec reads list parameters from a URL query. Absent parameters
// are left zero and filled in by NormalizeQuery.
func ParseQuerySpec(values url.Values) (models.QuerySpec, error) {
	var q models.QuerySpec

	if v := values.Get("type"); v != "" {
		t := models.TransactionType(v)
		q.Type = &t
	}

	if v := values.Get("startDate"); v != "" {
		start, _, err := ParseDate(v)
		if err != nil {
			return q, err
		}
		q.StartDate = &start
	}

	if v := values.Get("endDate"); v != "" {
		end, dateOnly, err := ParseDate(v)
		if err != nil {
			return q, err
		}
		if dateOnly {
			// a bare date covers the whole day
			end = end.Add(24*time.Hour - time.Nanosecond)
		}
		q.EndDate = &end
	}

	var err error
	if q.Page, err = parsePositive(values, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = parsePositive(values, "limit"); err != nil {
		return q, err
	}

	q.OrderBy = values.Get("orderBy")
	q.Order = values.Get("order")

	return q, nil
}

func parsePositive(values url.Values, key string) (int, error) {
	v := values.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(v, "-") {
		// beyond int: the page is past the end, the limit gets clamped
		return math.MaxInt, nil
	}
	if err != nil || n < 1 {
		return 0, Validation("%s must be an integer greater than or equal to 1", key)
	}
	return n, nil
}

// NormalizeQuery applies defaults and rejects values outside the allowed sets.
func NormalizeQuery(q models.QuerySpec) (models.QuerySpec, error) {
	if q.Type != nil && !q.Type.Valid() {
		return q, Validation("type must be one of: income, outcome")
	}

	if q.Page == 0 {
		q.Page = models.DefaultPage
	}
	if q.Page < 1 {
		return q, Validation("page must be greater than or equal to 1")
	}

	if q.Limit == 0 {
		q.Limit = models.DefaultLimit
	}
	if q.Limit < 1 {
		return q, Validation("limit must be greater than or equal to 1")
	}
	if q.Limit > models.MaxLimit {
		q.Limit = models.MaxLimit
	}

	switch q.OrderBy {
	case "":
		q.OrderBy = models.OrderByCreatedAt
	case models.OrderByCreatedAt, models.OrderByDate, models.OrderByAmount:
	default:
		return q, Validation("orderBy must be one of: created_at, date, amount")
	}

	switch q.Order {
	case "":
		q.Order = models.OrderDesc
	case models.OrderAsc, models.OrderDesc:
	default:
		return q, Validation("order must be one of: asc, desc")
	}

	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(*q.EndDate) {
		return q, Validation("startDate must not be after endDate")
	}

	return q, nil
}

// TotalPages is ceil(total / limit).
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
