package market

import "time"

const (
	// SettlementHour is the wall-clock hour at which one settlement day
	// ends and the next begins.
	SettlementHour = 8

	// Rebates for the previous settlement day are paid out after this
	// time of day; until then they are still pending.
	rebatePayoutHour   = 13
	rebatePayoutMinute = 30
)

// SettlementDay returns the accounting day (YYYY-MM-DD) a close time
// belongs to. Days run 08:00 to 08:00, so 07:59:59 on the 11th is still
// the 10th. Only wall-clock fields are used, so DST transitions do not
// move the boundary.
func SettlementDay(t time.Time) string {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if t.Hour() < SettlementHour {
		d = d.AddDate(0, 0, -1)
	}
	return d.Format("2006-01-02")
}

func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart is 00:00 on the most recent Monday.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return DayStart(t).AddDate(0, 0, -offset)
}

func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// PendingRebateCutoff returns the earliest close time whose rebate has
// not been paid yet. Before today's payout time that is yesterday's
// 08:00 boundary, afterwards today's.
func PendingRebateCutoff(now time.Time) time.Time {
	boundary := time.Date(now.Year(), now.Month(), now.Day(), SettlementHour, 0, 0, 0, now.Location())
	payout := time.Date(now.Year(), now.Month(), now.Day(), rebatePayoutHour, rebatePayoutMinute, 0, 0, now.Location())
	if now.Before(payout) {
		return boundary.AddDate(0, 0, -1)
	}
	return boundary
}
