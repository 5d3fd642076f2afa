package market

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the wall-clock format used for close times everywhere: in
// screenshots, manual input and the journal's text columns.
const Layout = "2006-01-02 15:04:05"

var ErrBadTimestamp = errors.New("malformed timestamp")

var (
	looseTimestampRE = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})\s+(\d{1,2}):(\d{2}):(\d{2})$`)
	labeledCloseRE   = regexp.MustCompile(`(?is)(?:平仓时间|Close Time|Time)[^\d]*?(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`)
	fullTimestampRE  = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)
	bareDateRE       = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	bareClockRE      = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)
)

// ParseTimestamp accepts "YYYY-MM-DD HH:MM:SS" as well as the looser
// "YYYY/M/D H:MM:SS" typed by hand, interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	m := looseTimestampRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
	}
	var parts [6]int
	for i := range parts {
		parts[i], _ = strconv.Atoi(m[i+1])
	}
	y, mo, d, hh, mm, ss := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5]
	if mo < 1 || mo > 12 || d < 1 || d > 31 || hh > 23 || mm > 59 || ss > 59 {
		return time.Time{}, fmt.Errorf("%w: %q out of range", ErrBadTimestamp, s)
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.Date(y, time.Month(mo), d, hh, mm, ss, 0, loc)
	if t.Day() != d {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrBadTimestamp, s)
	}
	return t, nil
}

func FormatTimestamp(t time.Time) string {
	return t.Format(Layout)
}

// FindCloseTime returns the close timestamp printed in recognized text:
// the first one following a close-time label, otherwise the last full
// timestamp anywhere. Empty when none is present.
func FindCloseTime(text string) string {
	if m := labeledCloseRE.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	all := fullTimestampRE.FindAllString(text, -1)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

// StripTimestamps removes full timestamps, bare dates and bare clock
// times so their digits do not pollute numeric scans.
func StripTimestamps(text string) string {
	text = fullTimestampRE.ReplaceAllString(text, "")
	text = bareDateRE.ReplaceAllString(text, "")
	return bareClockRE.ReplaceAllString(text, "")
}
