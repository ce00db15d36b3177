package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	emiratesIDPattern = regexp.MustCompile(`\b784[-\s]?\d{4}[-\s]?\d{7}[-\s]?\d\b`)
	clockPattern      = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
	isoDatePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// NormalizeDate converts free-form date text to an ISO calendar date relative
// to now. Returns false when the text cannot be normalized.
func NormalizeDate(raw string, now time.Time) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}

	if isoDatePattern.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s, true
		}
		return "", false
	}

	switch s {
	case "today", "tonight":
		return now.Format("2006-01-02"), true
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format("2006-01-02"), true
	}

	s = strings.TrimPrefix(s, "next ")
	if wd, ok := weekdays[s]; ok {
		days := (int(wd) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return now.AddDate(0, 0, days).Format("2006-01-02"), true
	}

	titled := titleWords(s)
	for _, layout := range []string{"2 January 2006", "January 2 2006", "2 Jan 2006", "Jan 2 2006", "02/01/2006"} {
		if t, err := time.Parse(layout, titled); err == nil {
			return t.Format("2006-01-02"), true
		}
	}

	return "", false
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 && w[0] >= 'a' && w[0] <= 'z' {
			words[i] = string(w[0]-'a'+'A') + w[1:]
		}
	}
	return strings.Join(words, " ")
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NormalizeTime converts clock text ("9am", "09:30", "9:30 pm") to 24-hour
// HH:MM form. Returns false when the text cannot be normalized.
func NormalizeTime(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ".", "")
	if s == "" {
		return "", false
	}

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil {
			return "", false
		}
	}

	switch m[3] {
	case "pm":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return "", false
		}
	}

	if minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// NormalizePhone converts phone text to E.164. Numbers without a country code
// are assumed to be UAE local numbers.
func NormalizePhone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	plus := strings.HasPrefix(s, "+")
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case strings.HasPrefix(d, "00"):
		d = d[2:]
	case plus:
		// already international
	case strings.HasPrefix(d, "971"):
		// country code without plus
	case strings.HasPrefix(d, "0") && (len(d) == 9 || len(d) == 10):
		d = "971" + d[1:]
	}

	if len(d) < 8 || len(d) > 15 {
		return "", false
	}
	return "+" + d, true
}

// NormalizeEmiratesID canonicalizes an Emirates ID to 784-XXXX-XXXXXXX-X form.
// Accepts dashed, spaced, or bare 15-digit input.
func NormalizeEmiratesID(raw string) (string, bool) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 15 || !strings.HasPrefix(d, "784") {
		return "", false
	}
	return fmt.Sprintf("%s-%s-%s-%s", d[:3], d[3:7], d[7:14], d[14:]), true
}

// ExtractEmiratesID scans free text for an Emirates ID pattern and returns the
// canonical form when one is present.
func ExtractEmiratesID(text string) (string, bool) {
	match := emiratesIDPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return NormalizeEmiratesID(match)
}

// normalizeSlot applies the slot-specific normalizer. The second return is
// false when the value failed normalization and must be dropped.
func normalizeSlot(name, value string, now time.Time) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}

	switch name {
	case SlotDate:
		return NormalizeDate(value, now)
	case SlotStartTime:
		return NormalizeTime(value)
	case SlotPhone:
		return NormalizePhone(value)
	case SlotEmiratesID:
		return NormalizeEmiratesID(value)
	case SlotMaxPrice:
		cleaned := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(value), "aed"))
		if v, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64); err == nil && v > 0 {
			return strconv.FormatFloat(v, 'f', -1, 64), true
		}
		return "", false
	default:
		return value, true
	}
}
