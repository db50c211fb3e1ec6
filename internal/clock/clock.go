// Package clock resolves "now" and "today" in the single civil time zone all
// business rules run in, and handles wall-clock times as zero-padded "HH:MM"
// strings. The string representation is deliberate: fixed-width strings
// compare lexically, which sidesteps timezone and DST casting bugs for
// service-slot comparisons.
package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	hhmmLayout = "15:04"
)

var hhmmRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Clock yields civil-zone time. The zero value is unusable; construct with
// New or NewFixed.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func New(timezone string) (Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Clock{}, fmt.Errorf("load civil timezone %q: %w", timezone, err)
	}
	return Clock{loc: loc, now: time.Now}, nil
}

// NewFixed pins the clock to a fixed instant, for tests.
func NewFixed(timezone string, at time.Time) (Clock, error) {
	c, err := New(timezone)
	if err != nil {
		return Clock{}, err
	}
	c.now = func() time.Time { return at }
	return c, nil
}

func (c Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the civil calendar date as YYYY-MM-DD.
func (c Clock) Today() string {
	return c.Now().Format(DateLayout)
}

// NowHHMM returns the civil wall-clock time as a zero-padded HH:MM string.
func (c Clock) NowHHMM() string {
	return c.Now().Format(hhmmLayout)
}

// ValidHHMM reports whether s is a strict zero-padded 24h HH:MM string.
func ValidHHMM(s string) bool {
	return hhmmRe.MatchString(s)
}

// NormalizeHHMM zero-pads loose inputs like "9:30" to "09:30". Returns the
// normalized string and whether the result is valid.
func NormalizeHHMM(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if parts := strings.SplitN(s, ":", 2); len(parts) == 2 && len(parts[0]) == 1 {
		s = "0" + s
	}
	if !ValidHHMM(s) {
		return "", false
	}
	return s, true
}

// ValidDate reports whether s is a valid YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// MinusMinutes subtracts n minutes from an HH:MM string, clamping at "00:00"
// rather than wrapping past midnight.
func MinusMinutes(hhmm string, n int) string {
	h, _ := strconv.Atoi(hhmm[:2])
	m, _ := strconv.Atoi(hhmm[3:])
	total := h*60 + m - n
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
