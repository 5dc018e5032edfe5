package normalize

import (
	"strconv"
	"strings"
	"time"
)

const (
	// serialThreshold is the smallest value read as a spreadsheet date serial.
	serialThreshold = 40000
	// unixEpochSerial is the serial of 1970-01-01 (day 0 is 1899-12-30).
	unixEpochSerial = 25569
	// maxSerial is 9999-12-31, the last day a four-digit year can hold.
	maxSerial = 2958465
)

// dateLayouts is tried in order. Day-first forms come before month-first ones
// since the statements this reads are day-first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006", "2/1/2006", "02/01/06", "2/1/06",
	"02-01-2006", "2-1-2006", "02-01-06",
	"02.01.2006", "2.1.2006",
	"02/01/2006 15:04:05", "02/01/2006 15:04", "02/01/06 15:04",
	"01/02/2006 03:04:05 PM", "1/2/2006 3:04:05 PM",
	"02-Jan-2006", "2-Jan-2006", "02-Jan-06", "2-Jan-06",
	"02/Jan/2006", "02/Jan/06",
	"02 Jan 2006", "2 Jan 2006", "02 Jan 06",
	"Jan 2, 2006", "January 2, 2006", "2 January 2006",
	"Mon Jan 2 2006",
}

// Date reads raw as either a spreadsheet serial day count or calendar text.
// ok is false when neither works; callers must not substitute a default.
func Date(raw string) (t time.Time, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f > serialThreshold && f < maxSerial+1 {
			return fromSerial(f), true
		}
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

// fromSerial converts a day count since 1899-12-30 to a UTC calendar date.
// Any fractional time-of-day is dropped.
func fromSerial(f float64) time.Time {
	days := int(f) - unixEpochSerial
	return time.Unix(0, 0).UTC().AddDate(0, 0, days)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
