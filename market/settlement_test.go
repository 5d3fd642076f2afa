package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettlementDay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"just_before_boundary", time.Date(2026, 1, 11, 7, 59, 59, 0, time.UTC), "2026-01-10"},
		{"at_boundary", time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC), "2026-01-11"},
		{"afternoon", time.Date(2026, 1, 11, 14, 52, 41, 0, time.UTC), "2026-01-11"},
		{"midnight", time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC), "2026-01-10"},
		{"month_rollover", time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC), "2026-02-28"},
		{"year_rollover", time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC), "2025-12-31"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SettlementDay(tt.at))
		})
	}
}

func TestSettlementDayIgnoresZone(t *testing.T) {
	t.Parallel()

	shanghai := time.FixedZone("CST", 8*3600)
	a := time.Date(2026, 1, 11, 7, 59, 59, 0, shanghai)
	b := time.Date(2026, 1, 11, 7, 59, 59, 0, time.UTC)
	assert.Equal(t, SettlementDay(a), SettlementDay(b))
}

func TestWeekStart(t *testing.T) {
	t.Parallel()

	// 2026-01-11 is a Sunday.
	sunday := time.Date(2026, 1, 11, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), WeekStart(sunday))

	monday := time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC), WeekStart(monday))
}

func TestMonthStart(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 2, 17, 22, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), MonthStart(at))
}

func TestPendingRebateCutoff(t *testing.T) {
	t.Parallel()

	morning := time.Date(2026, 1, 11, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC), PendingRebateCutoff(morning))

	afterPayout := time.Date(2026, 1, 11, 13, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC), PendingRebateCutoff(afterPayout))
}
