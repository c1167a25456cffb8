package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversionsRoundTrip(t *testing.T) {
	for _, x := range []float64{0, 0.5, 1, 12.25, 22, 26, 90, 1500} {
		assert.InDelta(t, x, CMToInches(InchesToCM(x)), 1e-9)
		assert.InDelta(t, x, KgToLbs(LbsToKg(x)), 1e-9)
		assert.InDelta(t, x, KcalToKJ(KJToKcal(x)), 1e-9)
	}
}

func TestConversionFactors(t *testing.T) {
	assert.InDelta(t, 55.88, InchesToCM(22), 1e-9)
	assert.InDelta(t, 22.6796, LbsToKg(50), 1e-9)
	assert.InDelta(t, 100, KJToKcal(418.4), 1e-9)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"24.5", 24.5, true},
		{"24,5", 24.5, true},
		{" 7 ", 7, true},
		{"-3", -3, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"12%", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseGroupedNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"3850", 3850},
		{"3,850", 3850},
		{"3.850", 3850},
		{"3 850", 3850},
		{"1,234,567", 1234567},
		{"385,5", 385.5},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseGroupedNumber(tt.in)
			assert.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConvert(t *testing.T) {
	v, ok := Convert("22", Inch)
	assert.True(t, ok)
	assert.InDelta(t, 55.88, v, 1e-9)

	v, ok = Convert("500", Gram)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-9)

	_, ok = Convert("twenty", Pound)
	assert.False(t, ok)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 55.9, Round1(55.88))
	assert.Equal(t, 66.0, Round1(66.04))
	assert.Equal(t, 40.8, Round1(40.82328))
}
