package margin

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealizedMargin(t *testing.T) {
	assert.InDelta(t, 0.75, RealizedMargin(250, 1000), 1e-12)
	assert.InDelta(t, -0.5, RealizedMargin(1500, 1000), 1e-12)
	assert.Zero(t, RealizedMargin(100, 0))
	assert.Zero(t, RealizedMargin(100, -10))
}

func TestSuggestedPrice_HitsTarget(t *testing.T) {
	for _, cost := range []float64{0.01, 12.5, 3300, 98765.4} {
		for _, target := range []float64{0, 0.3, 0.65, 0.75, 0.999} {
			price := SuggestedPrice(cost, target)
			assert.InDelta(t, target, RealizedMargin(cost, price), 1e-9, "cost=%v target=%v", cost, target)
		}
	}
	assert.Zero(t, SuggestedPrice(100, 1))
}

func TestPolicy_ClassifyBoundaries(t *testing.T) {
	p := DefaultPolicy()
	target := 0.75

	tests := []struct {
		name     string
		realized float64
		want     Status
	}{
		{name: "equal to target is ok", realized: target, want: StatusOK},
		{name: "above target is ok", realized: 0.9, want: StatusOK},
		{name: "just below target is alert", realized: math.Nextafter(target, 0), want: StatusAlert},
		{name: "exactly target*factor is alert", realized: target * p.CriticalFactor, want: StatusAlert},
		{name: "just below target*factor is critical", realized: math.Nextafter(target*p.CriticalFactor, 0), want: StatusCritical},
		{name: "negative margin is critical", realized: -0.2, want: StatusCritical},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, p.Classify(testCase.realized, target))
		})
	}
}

func TestPolicy_Evaluate(t *testing.T) {
	p := DefaultPolicy()

	ok := p.Evaluate(200, 1000, 0.75)
	assert.Equal(t, StatusOK, ok.Status)
	assert.Nil(t, ok.SuggestedPrice)
	assert.InDelta(t, 0.8, ok.RealizedMargin, 1e-12)

	alert := p.Evaluate(300, 1000, 0.75)
	assert.Equal(t, StatusAlert, alert.Status)
	require.NotNil(t, alert.SuggestedPrice)
	assert.InDelta(t, 1200, *alert.SuggestedPrice, 1e-9)

	critical := p.Evaluate(500, 1000, 0.75)
	assert.Equal(t, StatusCritical, critical.Status)
	require.NotNil(t, critical.SuggestedPrice)
	assert.InDelta(t, 2000, *critical.SuggestedPrice, 1e-9)

	noPrice := p.Evaluate(0, 0, 0.75)
	assert.Equal(t, StatusCritical, noPrice.Status)
}

func TestPolicy_CustomFactor(t *testing.T) {
	p := Policy{CriticalFactor: 0.5}
	assert.Equal(t, StatusAlert, p.Classify(0.4, 0.75))
	assert.Equal(t, StatusCritical, p.Classify(0.3, 0.75))
}

func TestValidateTargetMargin(t *testing.T) {
	assert.NoError(t, ValidateTargetMargin(0))
	assert.NoError(t, ValidateTargetMargin(0.75))
	assert.ErrorIs(t, ValidateTargetMargin(1), ErrTargetMargin)
	assert.ErrorIs(t, ValidateTargetMargin(1.2), ErrTargetMargin)
	assert.ErrorIs(t, ValidateTargetMargin(-0.1), ErrTargetMargin)
}

func TestAlerts(t *testing.T) {
	p := DefaultPolicy()
	items := []Item{
		{ID: 1, Name: "Milanesa", Evaluation: p.Evaluate(200, 1000, 0.75)},
		{ID: 2, Name: "Flan", Evaluation: p.Evaluate(300, 1000, 0.75)},
		{ID: 3, Name: "Bife", Evaluation: p.Evaluate(600, 1000, 0.75)},
		{ID: 4, Name: "Ensalada", Evaluation: p.Evaluate(450, 1000, 0.75)},
	}

	all := Alerts(items, 0)
	require.Len(t, all, 3)
	assert.Equal(t, []uint{3, 4, 2}, []uint{all[0].ID, all[1].ID, all[2].ID})

	top := Alerts(items, 2)
	require.Len(t, top, 2)
	assert.Equal(t, uint(3), top[0].ID)

	assert.Empty(t, Alerts(items[:1], 10))
}
