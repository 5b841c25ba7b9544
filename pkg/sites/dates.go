package sites

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	relMinutesRe = regexp.MustCompile(`(\d+)\s*(?:분\s*전|minutes?\s+ago)`)
	relHoursRe   = regexp.MustCompile(`(\d+)\s*(?:시간\s*전|hours?\s+ago)`)

	absYMDRe = regexp.MustCompile(`(\d{4})[./\- ](\d{1,2})[./\- ](\d{1,2})`)
	absMDYRe = regexp.MustCompile(`(\d{1,2})[./\- ](\d{1,2})\s*(\d{4})`)
)

// NormalizeDate turns the date text a site printed into YYYY-MM-DD.
// Absolute forms (dashed, dotted, slashed) and relative phrases ("N분 전",
// "N minutes ago", "어제"/"yesterday") are resolved against now. Text that
// matches nothing yields today's date: the corpus treats an unparseable
// stamp as "just published" rather than dropping the article.
func NormalizeDate(raw string, now time.Time) string {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
	if text == "" {
		return now.Format(dateLayout)
	}

	if m := relMinutesRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Minute).Format(dateLayout)
	}
	if m := relHoursRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * time.Hour).Format(dateLayout)
	}
	if strings.Contains(text, "어제") || strings.Contains(strings.ToLower(text), "yesterday") {
		return now.AddDate(0, 0, -1).Format(dateLayout)
	}

	if m := absYMDRe.FindStringSubmatch(text); m != nil {
		if t, ok := makeDate(m[1], m[2], m[3]); ok {
			return t.Format(dateLayout)
		}
	}
	if m := absMDYRe.FindStringSubmatch(text); m != nil {
		if t, ok := makeDate(m[3], m[1], m[2]); ok {
			return t.Format(dateLayout)
		}
	}

	return now.Format(dateLayout)
}

func makeDate(y, m, d string) (time.Time, bool) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(m)
	day, _ := strconv.Atoi(d)
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
