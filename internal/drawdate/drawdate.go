package drawdate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// CanonicalLayout is the stored form of a draw date.
const CanonicalLayout = "2006-01-02"

// ErrDateParse is wrapped by every ParseError.
var ErrDateParse = errors.New("unrecognized draw date")

// ParseError reports a raw date string that matched no recognized pattern.
type ParseError struct {
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDateParse.Error(), e.Raw)
}

func (e *ParseError) Unwrap() error {
	return ErrDateParse
}

// Date is a calendar date with no time-of-day component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// String returns the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time returns midnight UTC on the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Before reports whether d is earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := Normalize(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FromTime truncates t to its calendar date in t's own location.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	reCanonical  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	reDayMonth   = regexp.MustCompile(`^(?:[a-z]+,?\s+)?(\d{1,2})(?:st|nd|rd|th)?[\s\-/.]+([a-z]+)\.?,?[\s\-/.]+(\d{2}|\d{4})$`)
	reMonthDay   = regexp.MustCompile(`^(?:[a-z]+,?\s+)?([a-z]+)\.?[\s\-/.]+(\d{1,2})(?:st|nd|rd|th)?,?[\s\-/.]+(\d{2}|\d{4})$`)
	reNumericDMY = regexp.MustCompile(`^(\d{1,2})[\-/.](\d{1,2})[\-/.](\d{4})$`)
)

// Normalize maps a raw source date onto a calendar date.
//
// Textual months are accepted in either day-first ("5-Jan-2024",
// "05-January-2024") or month-first ("Jan 5, 2024") order. Purely numeric
// d-m-yyyy input is always read day first. Normalize(d.String()) == d for
// every Date it returns.
func Normalize(raw string) (Date, error) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if s == "" {
		return Date{}, &ParseError{Raw: raw}
	}

	if m := reCanonical.FindStringSubmatch(s); m != nil {
		return build(raw, atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := reDayMonth.FindStringSubmatch(s); m != nil {
		if month, ok := months[m[2]]; ok {
			return build(raw, year(m[3]), int(month), atoi(m[1]))
		}
	}

	if m := reMonthDay.FindStringSubmatch(s); m != nil {
		if month, ok := months[m[1]]; ok {
			return build(raw, year(m[3]), int(month), atoi(m[2]))
		}
	}

	if m := reNumericDMY.FindStringSubmatch(s); m != nil {
		return build(raw, atoi(m[3]), atoi(m[2]), atoi(m[1]))
	}

	// Strict mode refuses mm/dd vs dd/mm ambiguity instead of guessing.
	t, err := dateparse.ParseStrict(strings.TrimSpace(raw))
	if err != nil {
		return Date{}, &ParseError{Raw: raw}
	}
	// Same bounds as the patterns above.
	return build(raw, t.Year(), int(t.Month()), t.Day())
}

// MustNormalize is Normalize for literals known to be valid.
func MustNormalize(raw string) Date {
	d, err := Normalize(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func build(raw string, y, m, d int) (Date, error) {
	if y < 1900 || m < 1 || m > 12 || d < 1 || d > 31 {
		return Date{}, &ParseError{Raw: raw}
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date rolls 31-Feb into March; reject instead.
	if t.Day() != d || int(t.Month()) != m {
		return Date{}, &ParseError{Raw: raw}
	}
	return FromTime(t), nil
}

func year(s string) int {
	y := atoi(s)
	if len(s) == 2 {
		y += 2000
	}
	return y
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
