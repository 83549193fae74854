package processor

import (
	"regexp"
	"strings"
)

const maxTitleLen = 25

// DefaultMonths translates Indonesian month names to the short form used
// in folder names. Callers can supply their own table for other locales.
func DefaultMonths() map[string]string {
	return map[string]string{
		"Januari": "Jan", "Februari": "Feb", "Maret": "Mar",
		"April": "Apr", "Mei": "May", "Juni": "Jun",
		"Juli": "Jul", "Agustus": "Aug", "September": "Sep",
		"Oktober": "Okt", "November": "Nov", "Desember": "Des",
	}
}

var datePattern = regexp.MustCompile(`(\d+)\s+([A-Za-z]+)\s+(\d{4})`)

// illegal filesystem characters stripped from composed names
var illegalChars = strings.NewReplacer(
	"/", "", `\`, "", ":", "", "*", "", "?", "",
	`"`, "", "<", "", ">", "", "|", "",
)

// ComposeFolderName builds the deterministic destination name for an
// event: title capped at 25 runes with an ellipsis suffix, joined with
// the normalized date.
func ComposeFolderName(eventTitle, eventDate string, months map[string]string) string {
	title := eventTitle

	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen]) + "..."
	}

	name := title + " - " + NormalizeDate(eventDate, months)

	return illegalChars.Replace(name)
}

// NormalizeDate rewrites "20 Januari 2025" (optionally with a leading
// weekday like "Senin, 20 Januari 2025") to "20 Jan 2025". Dates that
// don't match the day-month-year pattern pass through unchanged.
func NormalizeDate(eventDate string, months map[string]string) string {
	m := datePattern.FindStringSubmatch(eventDate)

	if m == nil {
		return eventDate
	}

	month := m[2]

	if short, ok := months[month]; ok {
		month = short
	}

	return m[1] + " " + month + " " + m[3]
}
