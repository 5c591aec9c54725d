package history

import (
	"cmp"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"scorekeeper/core"
)

// SortField selects the key GetHistoryPage orders by.
type SortField string

const (
	SortByScore     SortField = "score"
	SortByMoves     SortField = "moves"
	SortByTimeSpent SortField = "timeSpent"
	SortByDate      SortField = "date"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortField accepts "score", "moves", "timeSpent" or "date"; empty means date.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.TrimSpace(s)); f {
	case "":
		return SortByDate, nil
	case SortByScore, SortByMoves, SortByTimeSpent, SortByDate:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown sort field %q", core.ErrInvalidQuery, s)
	}
}

// ParseSortOrder accepts "asc" or "desc"; empty means desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortDesc, nil
	case SortAsc, SortDesc:
		return o, nil
	default:
		return "", fmt.Errorf("%w: unknown sort order %q", core.ErrInvalidQuery, s)
	}
}

// DateRange bounds are inclusive; nil leaves that side open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ScoreRange bounds are inclusive; nil leaves that side open.
type ScoreRange struct {
	Min *float64
	Max *float64
}

// Filters are combined with AND. Zero value matches everything.
type Filters struct {
	Completed  *bool
	DateRange  DateRange
	ScoreRange ScoreRange
}

func (f Filters) match(r core.Record) bool {
	if f.Completed != nil && r.Completed != *f.Completed {
		return false
	}
	if f.DateRange.Start != nil && r.Date.Before(*f.DateRange.Start) {
		return false
	}
	if f.DateRange.End != nil && r.Date.After(*f.DateRange.End) {
		return false
	}
	if f.ScoreRange.Min != nil && r.Score < *f.ScoreRange.Min {
		return false
	}
	if f.ScoreRange.Max != nil && r.Score > *f.ScoreRange.Max {
		return false
	}
	return true
}

type PageRequest struct {
	Page      int
	PageSize  int
	Filters   Filters
	SortBy    SortField
	SortOrder SortOrder
}

type Page struct {
	Records     []core.Record `json:"records"`
	Total       int           `json:"total"`
	CurrentPage int           `json:"currentPage"`
	TotalPages  int           `json:"totalPages"`
	HasNext     bool          `json:"hasNext"`
	HasPrev     bool          `json:"hasPrev"`
}

// GetHistoryPage filters, sorts and paginates the history of (g, d). The page
// number is clamped into range rather than rejected.
func (m *Manager) GetHistoryPage(ctx context.Context, g core.GameType, d core.Difficulty, req PageRequest) (Page, error) {
	field, err := ParseSortField(string(req.SortBy))
	if err != nil {
		return Page{}, err
	}
	order, err := ParseSortOrder(string(req.SortOrder))
	if err != nil {
		return Page{}, err
	}
	records, err := m.GetHistory(ctx, g, d)
	if err != nil {
		return Page{}, err
	}
	size := req.PageSize
	if size <= 0 {
		size = m.pageSize
	}
	return paginate(sortRecords(filterRecords(records, req.Filters), field, order), req.Page, size), nil
}

func filterRecords(in []core.Record, f Filters) []core.Record {
	out := make([]core.Record, 0, len(in))
	for _, r := range in {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// sortRecords orders rs in place; equal keys keep their stored relative order.
func sortRecords(rs []core.Record, field SortField, order SortOrder) []core.Record {
	by := func(a, b core.Record) int {
		switch field {
		case SortByScore:
			return cmp.Compare(a.Score, b.Score)
		case SortByMoves:
			return cmp.Compare(a.Moves, b.Moves)
		case SortByTimeSpent:
			return cmp.Compare(a.TimeSpent, b.TimeSpent)
		default:
			return a.Date.Compare(b.Date)
		}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if order == SortAsc {
			return by(rs[i], rs[j]) < 0
		}
		return by(rs[i], rs[j]) > 0
	})
	return rs
}

func paginate(rs []core.Record, page, size int) Page {
	total := len(rs)
	// a page never needs to be larger than the result set
	size = min(size, max(total, 1))
	pages := total / size
	if total%size != 0 {
		pages++
	}
	page = max(1, min(page, max(1, pages)))
	start := min((page-1)*size, total)
	end := min(start+size, total)
	return Page{
		Records:     rs[start:end],
		Total:       total,
		CurrentPage: page,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}
