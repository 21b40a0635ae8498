// Package report aggregates paid orders into time-bucketed sales series
// for the admin dashboard.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/RZKY888X/bakery-store/internal/order"
)

type Range string

const (
	RangeToday   Range = "today"
	RangeWeekly  Range = "weekly"
	RangeMonthly Range = "monthly"
)

// ParseRange mirrors the dashboard query parameter: anything that is not
// weekly or monthly falls back to today.
func ParseRange(s string) Range {
	switch Range(s) {
	case RangeWeekly:
		return RangeWeekly
	case RangeMonthly:
		return RangeMonthly
	default:
		return RangeToday
	}
}

// Bucket is one labeled slice of the sales series. Index orders the series
// numerically; sorting by label would put "Minggu 10" before "Minggu 2".
type Bucket struct {
	Index int             `json:"-"`
	Label string          `json:"label"`
	Sales decimal.Decimal `json:"sales"`
}

// Day abbreviations as the id-ID dashboard renders them, Sunday first.
var dayNames = [7]string{"Min", "Sen", "Sel", "Rab", "Kam", "Jum", "Sab"}

// WindowStart returns the inclusive lower bound of the reporting window.
// The weekly window is the last 7 calendar days including today, starting
// at midnight; a longer window would hold two days with the same weekday
// label and the dashboard would render the label twice.
func WindowStart(rng Range, now time.Time) time.Time {
	switch rng {
	case RangeWeekly:
		d := now.AddDate(0, 0, -6)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, now.Location())
	case RangeMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
}

// Build buckets each order's total by its creation timestamp and sums per
// bucket. Orders are assumed to be pre-filtered to the revenue statuses and
// the window; Build itself is pure.
func Build(rng Range, start time.Time, orders []order.Order) []Bucket {
	type key struct {
		index int
		label string
	}
	sums := make(map[key]decimal.Decimal)

	for _, o := range orders {
		t := o.CreatedAt.In(start.Location())
		var k key
		switch rng {
		case RangeWeekly:
			k = key{index: daysBetween(start, t), label: dayNames[int(t.Weekday())]}
		case RangeMonthly:
			week := weekOfMonth(t)
			k = key{index: week, label: fmt.Sprintf("Minggu %d", week)}
		default:
			k = key{index: t.Hour(), label: fmt.Sprintf("%02d:00", t.Hour())}
		}
		sums[k] = sums[k].Add(o.TotalAmount)
	}

	out := make([]Bucket, 0, len(sums))
	for k, sales := range sums {
		out = append(out, Bucket{Index: k.index, Label: k.label, Sales: sales})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// weekOfMonth matches the dashboard convention: week 1 starts on the 1st
// and weeks break on Sundays.
func weekOfMonth(t time.Time) int {
	day := t.Day()
	weekday := int(t.Weekday())
	return (day + 6 - weekday + 6) / 7 // ceil((day + 6 - weekday) / 7)
}

func daysBetween(start, t time.Time) int {
	a := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	b := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, start.Location())
	return int(b.Sub(a) / (24 * time.Hour))
}

// Source is the slice of the order store the aggregator reads.
type Source interface {
	ListCreatedSince(ctx context.Context, since time.Time, statuses []order.Status) ([]order.Order, error)
}

type Service struct {
	src Source
	now func() time.Time
}

func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

// Sales recomputes the series from the store on every call; there is no
// cached or incremental state.
func (s *Service) Sales(ctx context.Context, rng Range) ([]Bucket, error) {
	start := WindowStart(rng, s.now())
	orders, err := s.src.ListCreatedSince(ctx, start, order.RevenueStatuses)
	if err != nil {
		return nil, fmt.Errorf("src.ListCreatedSince: %w", err)
	}
	return Build(rng, start, orders), nil
}
