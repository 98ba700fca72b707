package utils

import (
	"time"
)

// DateLayout is the calendar-date format used for grouping news by day.
const DateLayout = "2006-01-02"

// CST is China Standard Time (UTC+8), the calendar used for A-share news dates.
var CST *time.Location

func init() {
	var err error
	CST, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		CST = time.FixedZone("CST", 8*60*60)
	}
}

// NowCST returns the current time in CST.
func NowCST() time.Time {
	return time.Now().In(CST)
}

// DateKey formats t as a CST calendar date ("2006-01-02").
func DateKey(t time.Time) string {
	return t.In(CST).Format(DateLayout)
}

// Today returns today's CST date key.
func Today() string {
	return DateKey(time.Now())
}

// ParseDate parses a "2006-01-02" date string in CST.
func ParseDate(dateStr string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, dateStr, CST)
}

// ValidDate reports whether s is a well-formed calendar date.
func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// FormatDateTimeCST formats a time.Time to "2006-01-02 15:04:05 CST".
func FormatDateTimeCST(t time.Time) string {
	return t.In(CST).Format("2006-01-02 15:04:05 CST")
}

// MarketStatus returns the A-share session state at the current time.
func MarketStatus() string {
	return MarketStatusAt(NowCST())
}

// MarketStatusAt returns the A-share session state at t.
// Sessions: 09:15 call auction, 09:30-11:30 and 13:00-15:00 continuous trading.
func MarketStatusAt(t time.Time) string {
	t = t.In(CST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}

	clock := func(h, m int) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), h, m, 0, 0, CST)
	}

	switch {
	case t.Before(clock(9, 15)):
		return "PRE-MARKET"
	case t.Before(clock(9, 30)):
		return "CALL AUCTION"
	case !t.After(clock(11, 30)):
		return "OPEN"
	case t.Before(clock(13, 0)):
		return "LUNCH BREAK"
	case !t.After(clock(15, 0)):
		return "OPEN"
	default:
		return "CLOSED"
	}
}
