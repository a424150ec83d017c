package variation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return now.AddDate(0, 0, -n) }

func series(id uint, prev, cur float64) Series {
	return Series{
		IngredientID: id,
		Name:         "insumo",
		Observations: []Observation{
			{Price: prev, Date: daysAgo(5)},
			{Price: cur, Date: daysAgo(1)},
		},
	}
}

func TestPercent(t *testing.T) {
	pct, ok := Percent(100, 107)
	require.True(t, ok)
	assert.Equal(t, 7.0, pct)

	pct, ok = Percent(300, 301)
	require.True(t, ok)
	assert.Equal(t, 0.3, pct)

	pct, ok = Percent(100, 50)
	require.True(t, ok)
	assert.Equal(t, -50.0, pct)

	_, ok = Percent(0, 10)
	assert.False(t, ok)
}

func TestDetect_Threshold(t *testing.T) {
	got := Detect(now, []Series{series(1, 100, 107), series(2, 100, 103)}, DefaultConfig())
	require.Len(t, got, 1)
	assert.Equal(t, uint(1), got[0].IngredientID)
	assert.Equal(t, 7.0, got[0].Percent)
	assert.Equal(t, 100.0, got[0].Previous)
	assert.Equal(t, 107.0, got[0].Current)
}

func TestDetect_ThresholdUsesRoundedValue(t *testing.T) {
	// 4.96% rounds to 5.0 and is reported
	got := Detect(now, []Series{series(1, 1000, 1049.6)}, DefaultConfig())
	require.Len(t, got, 1)
	assert.Equal(t, 5.0, got[0].Percent)
}

func TestDetect_SortAndLimit(t *testing.T) {
	in := []Series{
		series(1, 100, 110),
		series(2, 100, 60),
		series(3, 100, 125),
		series(4, 100, 90),
	}
	cfg := DefaultConfig()
	cfg.Limit = 3

	got := Detect(now, in, cfg)
	require.Len(t, got, 3)
	assert.Equal(t, []uint{2, 3, 1}, []uint{got[0].IngredientID, got[1].IngredientID, got[2].IngredientID})
}

func TestDetect_TieBreakByID(t *testing.T) {
	got := Detect(now, []Series{series(9, 100, 90), series(4, 100, 110)}, DefaultConfig())
	require.Len(t, got, 2)
	assert.Equal(t, uint(4), got[0].IngredientID)
}

func TestDetect_Window(t *testing.T) {
	s := Series{
		IngredientID: 1,
		Observations: []Observation{
			{Price: 50, Date: daysAgo(30)},
			{Price: 100, Date: daysAgo(3)},
		},
	}
	assert.Empty(t, Detect(now, []Series{s}, DefaultConfig()))

	wide := DefaultConfig()
	wide.Window = 60 * 24 * time.Hour
	assert.Len(t, Detect(now, []Series{s}, wide), 1)
}

func TestDetect_UsesNewestTwo(t *testing.T) {
	s := Series{
		IngredientID: 1,
		Observations: []Observation{
			{Price: 120, Date: daysAgo(1)},
			{Price: 10, Date: daysAgo(10)},
			{Price: 100, Date: daysAgo(4)},
		},
	}
	got := Detect(now, []Series{s}, DefaultConfig())
	require.Len(t, got, 1)
	assert.Equal(t, 20.0, got[0].Percent)
	assert.Equal(t, daysAgo(1), got[0].Date)
}

func TestDetect_Exclusions(t *testing.T) {
	single := Series{IngredientID: 1, Observations: []Observation{{Price: 100, Date: daysAgo(1)}}}
	zeroPrev := series(2, 0, 100)
	assert.Empty(t, Detect(now, []Series{single, zeroPrev}, DefaultConfig()))
}

func TestLatest_IgnoresWindowAndThreshold(t *testing.T) {
	s := Series{
		IngredientID: 1,
		Observations: []Observation{
			{Price: 100, Date: daysAgo(90)},
			{Price: 101, Date: daysAgo(60)},
		},
	}
	v, ok := Latest(s)
	require.True(t, ok)
	assert.Equal(t, 1.0, v.Percent)
}

func TestDetect_WindowStartsAtMidnight(t *testing.T) {
	afternoon := time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC)
	s := Series{
		IngredientID: 1,
		Observations: []Observation{
			{Price: 100, Date: time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)},
			{Price: 110, Date: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)},
		},
	}
	got := Detect(afternoon, []Series{s}, DefaultConfig())
	require.Len(t, got, 1)
	assert.Equal(t, 10.0, got[0].Percent)

	// one day earlier falls outside
	s.Observations[0].Date = time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, Detect(afternoon, []Series{s}, DefaultConfig()))
}

func TestConfig_Since(t *testing.T) {
	cfg := DefaultConfig()
	want := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, cfg.Since(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, want, cfg.Since(time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)))
}

func TestDetect_SameDateOrderedByID(t *testing.T) {
	day := daysAgo(1)
	tests := []struct {
		name string
		obs  []Observation
	}{
		{"inserted order", []Observation{{ID: 7, Price: 100, Date: day}, {ID: 8, Price: 120, Date: day}}},
		{"reversed order", []Observation{{ID: 8, Price: 120, Date: day}, {ID: 7, Price: 100, Date: day}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(now, []Series{{IngredientID: 1, Observations: tt.obs}}, DefaultConfig())
			require.Len(t, got, 1)
			assert.Equal(t, 100.0, got[0].Previous)
			assert.Equal(t, 120.0, got[0].Current)
			assert.Equal(t, 20.0, got[0].Percent)
		})
	}
}
