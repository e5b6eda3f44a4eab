package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is a size unit offered by the filter form.
type Unit string

const (
	Bytes Unit = "Bytes"
	KB    Unit = "KB"
	MB    Unit = "MB"
	GB    Unit = "GB"
)

// DefaultUnit is shown for an unset size bound.
const DefaultUnit = KB

// DateLayout is the layout of the date fields a user enters.
const DateLayout = "2006-01-02"

var unitBytes = map[Unit]int64{
	Bytes: 1,
	KB:    1024,
	MB:    1024 * 1024,
	GB:    1024 * 1024 * 1024,
}

// redisplay picks the largest unit the value reaches, in this order.
var displayUnits = []Unit{GB, MB, KB}

// Multiplier returns the number of bytes in one u.
func (u Unit) Multiplier() int64 {
	return unitBytes[u]
}

// ParseUnit resolves a unit name, ignoring case. "B" is accepted for Bytes.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "B", "BYTES":
		return Bytes, nil
	case "KB":
		return KB, nil
	case "MB":
		return MB, nil
	case "GB":
		return GB, nil
	}
	return "", fmt.Errorf("unknown size unit %q (want Bytes, KB, MB or GB)", s)
}

// FilterInput is the filter as a user enters it: free-form size values
// with a unit, a MIME type and local calendar dates.
type FilterInput struct {
	MinSizeValue string
	MinSizeUnit  Unit
	MaxSizeValue string
	MaxSizeUnit  Unit
	MimeType     string
	StartDate    string
	EndDate      string
}

// Filter is the canonical form sent to the server. A nil size bound and an
// empty string mean the field is unset. Dates are local calendar days in
// DateLayout; Build turns them into UTC instants.
type Filter struct {
	MinSizeBytes *int64 `json:"min_size_bytes,omitempty"`
	MaxSizeBytes *int64 `json:"max_size_bytes,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
}

// IsZero reports whether no field of the filter is set.
func (f Filter) IsZero() bool {
	return f.MinSizeBytes == nil && f.MaxSizeBytes == nil &&
		f.MimeType == "" && f.StartDate == "" && f.EndDate == ""
}

// Canonicalize converts user input into a Filter. Sizes become
// round(value × unit) bytes; an empty value leaves the bound unset. The
// MIME choice "All" means no MIME filter.
func Canonicalize(in FilterInput) (Filter, error) {
	var f Filter
	var err error

	if f.MinSizeBytes, err = sizeBytes("min size", in.MinSizeValue, in.MinSizeUnit); err != nil {
		return Filter{}, err
	}
	if f.MaxSizeBytes, err = sizeBytes("max size", in.MaxSizeValue, in.MaxSizeUnit); err != nil {
		return Filter{}, err
	}

	f.MimeType = strings.TrimSpace(in.MimeType)
	if strings.EqualFold(f.MimeType, "all") {
		f.MimeType = ""
	}

	if f.StartDate, err = checkDate("start date", in.StartDate); err != nil {
		return Filter{}, err
	}
	if f.EndDate, err = checkDate("end date", in.EndDate); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func sizeBytes(field, value string, unit Unit) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if unit == "" {
		unit = DefaultUnit
	}
	mult := unit.Multiplier()
	if mult == 0 {
		return nil, fmt.Errorf("%s: unknown unit %q", field, unit)
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s: %q is not a number", field, value)
	}
	if v < 0 {
		return nil, fmt.Errorf("%s: %q must not be negative", field, value)
	}

	total := math.Round(v * float64(mult))
	if total >= math.MaxInt64 {
		return nil, fmt.Errorf("%s: %s %s is too large", field, value, unit)
	}
	n := int64(total)
	return &n, nil
}

func checkDate(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return "", fmt.Errorf("%s: %q is not a date (want YYYY-MM-DD)", field, value)
	}
	return value, nil
}

// Display splits a byte count into the value and unit a form would show.
// An unset or zero bound shows as an empty value in DefaultUnit.
func Display(bytes *int64) (string, Unit) {
	if bytes == nil || *bytes == 0 {
		return "", DefaultUnit
	}
	b := *bytes
	for _, u := range displayUnits {
		limit := u.Multiplier()
		if b >= limit {
			s := strconv.FormatFloat(float64(b)/float64(limit), 'f', 2, 64)
			return strings.TrimSuffix(s, ".00"), u
		}
	}
	return strconv.FormatInt(b, 10), Bytes
}

// DisplaySize renders a bound as "2 GB", or "" when unset.
func DisplaySize(bytes *int64) string {
	v, u := Display(bytes)
	if v == "" {
		return ""
	}
	return v + " " + string(u)
}

// Input returns the form state that redisplays f.
func (f Filter) Input() FilterInput {
	in := FilterInput{
		MimeType:  f.MimeType,
		StartDate: f.StartDate,
		EndDate:   f.EndDate,
	}
	in.MinSizeValue, in.MinSizeUnit = Display(f.MinSizeBytes)
	in.MaxSizeValue, in.MaxSizeUnit = Display(f.MaxSizeBytes)
	return in
}

// ParseSize splits a size such as "1.5MB", "200 kb" or "512" into its
// value and unit. A bare number is in Bytes. The value is not checked
// here; Canonicalize does that.
func ParseSize(s string) (string, Unit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", DefaultUnit, nil
	}
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.' && r != '-' && r != '+'
	})
	if i < 0 {
		return s, Bytes, nil
	}
	value := strings.TrimSpace(s[:i])
	unit, err := ParseUnit(s[i:])
	if err != nil {
		return "", "", err
	}
	if value == "" {
		return "", "", fmt.Errorf("size %q has no value", s)
	}
	return value, unit, nil
}
