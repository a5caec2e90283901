package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crediai/crediai/internal/model"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.InDelta(t, 100, cfg.Weights.Sum(), 0.001)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScoringConfig)
		wantErr bool
	}{
		{
			name:    "default passes",
			mutate:  func(_ *ScoringConfig) {},
			wantErr: false,
		},
		{
			name: "weights summing to 95 rejected",
			mutate: func(c *ScoringConfig) {
				c.Weights.Age = 10
			},
			wantErr: true,
		},
		{
			name: "negative weight rejected",
			mutate: func(c *ScoringConfig) {
				c.Weights.Age = -10
				c.Weights.Income = 50
			},
			wantErr: true,
		},
		{
			name: "threshold above 100 rejected",
			mutate: func(c *ScoringConfig) {
				c.ApprovalThreshold = 120
			},
			wantErr: true,
		},
		{
			name: "negative threshold rejected",
			mutate: func(c *ScoringConfig) {
				c.ApprovalThreshold = -1
			},
			wantErr: true,
		},
		{
			name: "gap between rate bands rejected",
			mutate: func(c *ScoringConfig) {
				// 80-89 leaves [89,90) uncovered.
				for i := range c.RateBands {
					if c.RateBands[i].MinScore == 80 {
						c.RateBands[i].MaxScore = 89
					}
				}
			},
			wantErr: true,
		},
		{
			name: "overlapping rate bands rejected",
			mutate: func(c *ScoringConfig) {
				for i := range c.RateBands {
					if c.RateBands[i].MinScore == 80 {
						c.RateBands[i].MinScore = 75
					}
				}
			},
			wantErr: true,
		},
		{
			name: "bands not reaching 100 rejected",
			mutate: func(c *ScoringConfig) {
				for i := range c.RateBands {
					if c.RateBands[i].MaxScore == 100 {
						c.RateBands[i].MaxScore = 99
					}
				}
			},
			wantErr: true,
		},
		{
			name: "empty band table rejected",
			mutate: func(c *ScoringConfig) {
				c.RateBands = nil
			},
			wantErr: true,
		},
		{
			name: "inverted score range rejected",
			mutate: func(c *ScoringConfig) {
				c.AgeRanges[0].Min = 30
				c.AgeRanges[0].Max = 20
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBandFor(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name      string
		score     float64
		wantLabel string
		wantRate  float64
	}{
		{name: "perfect score lands in top band", score: 100, wantLabel: "AAA - Excellent", wantRate: 0.10},
		{name: "lower boundary of top band", score: 90, wantLabel: "AAA - Excellent", wantRate: 0.10},
		{name: "just under top band", score: 89.9, wantLabel: "AA - Very Good", wantRate: 0.12},
		{name: "example total of 88.5", score: 88.5, wantLabel: "AA - Very Good", wantRate: 0.12},
		{name: "threshold score", score: 60, wantLabel: "BBB - Fair", wantRate: 0.18},
		{name: "zero score lands in bottom band", score: 0, wantLabel: "B - High Risk", wantRate: 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			band, ok := cfg.BandFor(tt.score)
			require.True(t, ok)
			assert.Equal(t, tt.wantLabel, band.Label)
			assert.InDelta(t, tt.wantRate, band.AnnualRate, 0.0001)
		})
	}
}

func TestBandForCoversWholeScale(t *testing.T) {
	cfg := Default()

	// Sweep the scale in tenth-of-a-point steps; every score must land in
	// exactly one band.
	for i := 0; i <= 1000; i++ {
		score := float64(i) / 10
		matches := 0
		for _, b := range cfg.RateBands {
			if b.Contains(score) {
				matches++
			}
		}
		require.Equalf(t, 1, matches, "score %.1f covered by %d bands", score, matches)
	}
}

func TestBandForOutOfRange(t *testing.T) {
	cfg := Default()

	_, ok := cfg.BandFor(-0.1)
	assert.False(t, ok)
	_, ok = cfg.BandFor(100.1)
	assert.False(t, ok)
}

func TestDefaultHistoryScores(t *testing.T) {
	cfg := Default()
	assert.InDelta(t, 100, cfg.HistoryScores[model.HistoryGood], 0.001)
	assert.InDelta(t, 60, cfg.HistoryScores[model.HistoryFair], 0.001)
	assert.InDelta(t, 20, cfg.HistoryScores[model.HistoryPoor], 0.001)
}
