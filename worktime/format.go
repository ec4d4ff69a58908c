package worktime

import "fmt"

// Labels are the localized unit suffixes supplied by the caller.
type Labels struct {
	Hours   string
	Minutes string
}

var DefaultLabels = Labels{Hours: "h", Minutes: "min"}

// FormatDiff renders a signed minute count as "+1h 30min" / "-0h 45min".
// Zero is shown with a plus sign.
func FormatDiff(minutes int, labels Labels) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("%s%d%s %d%s", sign, minutes/60, labels.Hours, minutes%60, labels.Minutes)
}
