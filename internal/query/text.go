package query

import (
	"strconv"
	"time"
)

// Ordinal returns n with its English ordinal suffix, e.g. 22 -> "22nd".
func Ordinal(n int) string {
	suffix := "th"
	switch abs := absInt(n); {
	case abs%100 >= 11 && abs%100 <= 13:
	case abs%10 == 1:
		suffix = "st"
	case abs%10 == 2:
		suffix = "nd"
	case abs%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}

// FormatHour converts a 24-hour value to "8PM" style.
func FormatHour(h int) string {
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
		if h > 12 {
			h -= 12
		}
	}
	if h == 0 {
		h = 12
	}
	return strconv.Itoa(h) + suffix
}

// WeekdayName returns the plural weekday name for a Sunday=0 index.
func WeekdayName(d int) string {
	if d < 0 || d > 6 {
		return ""
	}
	return time.Weekday(d).String() + "s"
}

// MonthName returns the English month name for 1-12.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return time.Month(m).String()
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
