package database

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

var monthsES = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// GetToday returns today's date as YYYY-MM-DD.
func GetToday() string {
	return time.Now().Format(dateLayout)
}

// DaysBefore returns the date n days before date, or date itself when it
// does not parse.
func DaysBefore(date string, n int) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, -n).Format(dateLayout)
}

// FormatDateDisplay formats a YYYY-MM-DD date for display: "06 feb 2026".
func FormatDateDisplay(date string) string {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%02d %s %d", d.Day(), monthsES[d.Month()-1], d.Year())
}
