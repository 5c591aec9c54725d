package history

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/core"
)

func TestParseSort(t *testing.T) {
	f, err := ParseSortField("")
	require.NoError(t, err)
	assert.Equal(t, SortByDate, f)

	f, err = ParseSortField("timeSpent")
	require.NoError(t, err)
	assert.Equal(t, SortByTimeSpent, f)

	_, err = ParseSortField("name")
	assert.ErrorIs(t, err, core.ErrInvalidQuery)

	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, SortDesc, o)

	o, err = ParseSortOrder("ASC")
	require.NoError(t, err)
	assert.Equal(t, SortAsc, o)

	_, err = ParseSortOrder("sideways")
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
}

func TestSortRecords_StableByScore(t *testing.T) {
	rs := []core.Record{{ID: "a", Score: 5}, {ID: "b", Score: 2}, {ID: "c", Score: 5}}
	sortRecords(rs, SortByScore, SortAsc)
	assert.Equal(t, []string{"b", "a", "c"}, []string{rs[0].ID, rs[1].ID, rs[2].ID})

	rs = []core.Record{{ID: "a", Score: 5}, {ID: "b", Score: 2}, {ID: "c", Score: 5}}
	sortRecords(rs, SortByScore, SortDesc)
	assert.Equal(t, []string{"a", "c", "b"}, []string{rs[0].ID, rs[1].ID, rs[2].ID})
}

func TestGetHistoryPage_VisitsEveryRecordOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, d := core.GameNumberPuzzle, core.Difficulty("4x4")

	want := map[string]bool{}
	for i := 0; i < 47; i++ {
		rec := f.play(t, g, d, float64(i%9))
		want[rec.ID] = true
	}

	for _, size := range []int{1, 7, 20, 47, 100} {
		seen := map[string]int{}
		var prev *core.Record
		pages := (47 + size - 1) / size
		for page := 1; page <= pages; page++ {
			res, err := f.m.GetHistoryPage(ctx, g, d, PageRequest{Page: page, PageSize: size, SortBy: SortByScore, SortOrder: SortAsc})
			require.NoError(t, err)
			assert.Equal(t, 47, res.Total)
			assert.Equal(t, pages, res.TotalPages)
			assert.Equal(t, page, res.CurrentPage)
			assert.Equal(t, page < pages, res.HasNext)
			assert.Equal(t, page > 1, res.HasPrev)
			for i := range res.Records {
				r := res.Records[i]
				seen[r.ID]++
				if prev != nil {
					assert.LessOrEqual(t, prev.Score, r.Score)
				}
				prev = &r
			}
		}
		assert.Len(t, seen, len(want), "page size %d", size)
		for id, n := range seen {
			assert.True(t, want[id])
			assert.Equal(t, 1, n, "record %s seen %d times", id, n)
		}
	}
}

func TestGetHistoryPage_DefaultsAndClamping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, d := core.GameReaction, core.DifficultyDefault

	for i := 0; i < 25; i++ {
		f.play(t, g, d, float64(100+i))
	}

	res, err := f.m.GetHistoryPage(ctx, g, d, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Len(t, res.Records, DefaultPageSize)
	assert.Equal(t, 124.0, res.Records[0].Score, "default sort is newest first")

	res, err = f.m.GetHistoryPage(ctx, g, d, PageRequest{Page: 99})
	require.NoError(t, err)
	assert.Equal(t, 2, res.CurrentPage)
	assert.Len(t, res.Records, 5)
	assert.False(t, res.HasNext)

	res, err = f.m.GetHistoryPage(ctx, g, d, PageRequest{Page: -3})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CurrentPage)

	_, err = f.m.GetHistoryPage(ctx, g, d, PageRequest{SortBy: "bogus"})
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
}

func TestGetHistoryPage_HugePageSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, d := core.GameStopwatch, core.DifficultyDefault
	for _, s := range []float64{0.5, 0.25, 0.75} {
		f.play(t, g, d, s)
	}

	for _, size := range []int{math.MaxInt, math.MaxInt - 1, math.MaxInt / 2} {
		res, err := f.m.GetHistoryPage(ctx, g, d, PageRequest{Page: 2, PageSize: size})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 1, res.TotalPages)
		assert.Equal(t, 1, res.CurrentPage)
		assert.Len(t, res.Records, 3)
		assert.False(t, res.HasNext)
		assert.False(t, res.HasPrev)
	}
}

func TestGetHistoryPage_EmptyPartition(t *testing.T) {
	f := newFixture(t)
	res, err := f.m.GetHistoryPage(context.Background(), core.GameMouse, core.DifficultyDefault, PageRequest{Page: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, res.CurrentPage)
	assert.Equal(t, 0, res.TotalPages)
	assert.Empty(t, res.Records)
	assert.False(t, res.HasNext)
	assert.False(t, res.HasPrev)
}

func TestGetHistoryPage_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g, d := core.GameStopwatch, core.DifficultyDefault

	start := f.clock.Now()
	var recs []core.Record
	for i := 0; i < 10; i++ {
		f.clock.Advance(time.Minute)
		rec, err := f.m.RecordScore(ctx, g, d, core.ScoreData{Score: float64(i), Completed: core.Bool(i%2 == 0)})
		require.NoError(t, err)
		recs = append(recs, rec)
	}

	res, err := f.m.GetHistoryPage(ctx, g, d, PageRequest{Filters: Filters{Completed: core.Bool(true)}})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Total)

	lo, hi := 0.0, 3.0
	res, err = f.m.GetHistoryPage(ctx, g, d, PageRequest{Filters: Filters{ScoreRange: ScoreRange{Min: &lo, Max: &hi}}})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 1, 0}, scores(res.Records), "zero is a real lower bound")

	from := recs[2].Date
	to := recs[5].Date
	res, err = f.m.GetHistoryPage(ctx, g, d, PageRequest{
		Filters:   Filters{DateRange: DateRange{Start: &from, End: &to}},
		SortBy:    SortByDate,
		SortOrder: SortAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4, 5}, scores(res.Records))

	res, err = f.m.GetHistoryPage(ctx, g, d, PageRequest{Filters: Filters{
		Completed:  core.Bool(false),
		ScoreRange: ScoreRange{Min: &lo, Max: &hi},
		DateRange:  DateRange{Start: &start},
	}})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1}, scores(res.Records))
}
