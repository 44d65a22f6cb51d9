package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatesCost(t *testing.T) {
	tests := []struct {
		name       string
		prompt     int
		completion int
		want       float64
	}{
		{name: "zero", prompt: 0, completion: 0, want: 0},
		{name: "input only", prompt: 1_000_000, completion: 0, want: 2.50},
		{name: "output only", prompt: 0, completion: 1_000_000, want: 7.50},
		{name: "mixed", prompt: 300, completion: 50, want: 0.001125},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DefaultRates.Cost(tt.prompt, tt.completion), 1e-12)
		})
	}
}

func TestMeterAccumulationIsLinear(t *testing.T) {
	split := NewMeter(DefaultRates)
	split.Record(100, 50)
	split.Record(200, 0)

	once := NewMeter(DefaultRates)
	once.Record(300, 50)

	assert.InDelta(t, 0.001125, split.Totals().CostTotal, 1e-12)
	assert.InDelta(t, once.Totals().CostTotal, split.Totals().CostTotal, 1e-12)
	assert.Equal(t, once.Totals().TokenTotal, split.Totals().TokenTotal)
	assert.Equal(t, int64(350), split.Totals().TokenTotal)
}

func TestMeterRecordZeroLeavesTotalsUnchanged(t *testing.T) {
	m := NewMeter(DefaultRates)
	m.Record(10, 10)
	before := m.Totals()

	delta := m.Record(0, 0)

	assert.Zero(t, delta)
	assert.Equal(t, before, m.Totals())
}

func TestMeterNeverDecreases(t *testing.T) {
	m := NewMeter(DefaultRates)
	m.Record(100, 100)
	before := m.Totals()

	m.Record(-50, -10)

	assert.Equal(t, before, m.Totals())
}

func TestMeterInjectedRates(t *testing.T) {
	m := NewMeter(Rates{InputPerMillion: 1, OutputPerMillion: 2})
	delta := m.Record(1_000_000, 1_000_000)
	assert.InDelta(t, 3.0, delta, 1e-12)
	assert.Equal(t, Rates{InputPerMillion: 1, OutputPerMillion: 2}, m.Rates())
}
