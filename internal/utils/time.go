package contextutils

import (
	"time"
)

// QuestDay is the YYYY-MM-DD key used for daily quest state. Day boundaries are
// evaluated in UTC so that streak accounting is stable regardless of the
// client's clock.
func QuestDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// IsYesterday reports whether the day keyed by prev immediately precedes the
// day keyed by now, both as YYYY-MM-DD strings.
func IsYesterday(prev, now string) bool {
	prevDay, err := time.Parse("2006-01-02", prev)
	if err != nil {
		return false
	}
	nowDay, err := time.Parse("2006-01-02", now)
	if err != nil {
		return false
	}
	return prevDay.AddDate(0, 0, 1).Equal(nowDay)
}

// ParseDate parses a YYYY-MM-DD date string in UTC.
func ParseDate(dateStr string) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return time.Time{}, WrapError(err, "invalid date format")
	}
	return date, nil
}
