package timerange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesurlydev/wiwo/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		expr        string
		expected    models.TimeRange
		expectedErr error
	}{
		{
			name:     "days",
			expr:     "30d",
			expected: models.TimeRange{Amount: 30, Unit: models.UnitDay},
		},
		{
			name:     "weeks",
			expr:     "2w",
			expected: models.TimeRange{Amount: 2, Unit: models.UnitWeek},
		},
		{
			name:     "months",
			expr:     "6m",
			expected: models.TimeRange{Amount: 6, Unit: models.UnitMonth},
		},
		{
			name:     "years",
			expr:     "1y",
			expected: models.TimeRange{Amount: 1, Unit: models.UnitYear},
		},
		{
			name:     "uppercase unit",
			expr:     "3D",
			expected: models.TimeRange{Amount: 3, Unit: models.UnitDay},
		},
		{
			name:     "multi-digit amount",
			expr:     "365d",
			expected: models.TimeRange{Amount: 365, Unit: models.UnitDay},
		},
		{
			name:        "empty string",
			expr:        "",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "zero amount",
			expr:        "0d",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "leading zero",
			expr:        "05d",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "negative amount",
			expr:        "-3d",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "unknown unit",
			expr:        "5x",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "unit before amount",
			expr:        "d5",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "missing unit",
			expr:        "30",
			expectedErr: ErrInvalidFormat,
		},
		{
			name:        "missing amount",
			expr:        "d",
			expectedErr: ErrInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.expr)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		rng      models.TimeRange
		expected time.Time
	}{
		{
			name:     "3 days",
			rng:      models.TimeRange{Amount: 3, Unit: models.UnitDay},
			expected: now.AddDate(0, 0, -3),
		},
		{
			name:     "2 weeks is 14 days",
			rng:      models.TimeRange{Amount: 2, Unit: models.UnitWeek},
			expected: now.AddDate(0, 0, -14),
		},
		{
			name:     "2 months is 60 days",
			rng:      models.TimeRange{Amount: 2, Unit: models.UnitMonth},
			expected: now.AddDate(0, 0, -60),
		},
		{
			name:     "1 year is 365 days",
			rng:      models.TimeRange{Amount: 1, Unit: models.UnitYear},
			expected: now.AddDate(0, 0, -365),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Resolve(tt.rng, now))
		})
	}
}

func TestResolveMonotonic(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	prev := Resolve(models.TimeRange{Amount: 1, Unit: models.UnitDay}, now)
	for amount := 2; amount <= 400; amount++ {
		cutoff := Resolve(models.TimeRange{Amount: amount, Unit: models.UnitDay}, now)
		assert.True(t, cutoff.Before(prev), "larger amount must give earlier cutoff (amount=%d)", amount)
		prev = cutoff
	}
}

func TestCapped(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		capped bool
	}{
		{"3 days", "3d", false},
		{"2 months is 60 days", "2m", false},
		{"exactly 90 days", "90d", false},
		{"91 days", "91d", true},
		{"13 weeks", "13w", true},
		{"1 year", "1y", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.capped, Capped(rng))
		})
	}
}

func TestDefault(t *testing.T) {
	rng := Default()
	assert.Equal(t, models.TimeRange{Amount: 30, Unit: models.UnitDay}, rng)
	assert.False(t, Capped(rng))
	assert.Equal(t, "30d", rng.String())
}
