// Package dateutil resolves "auto" date values used in global properties.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxDateFormatLength limits format string length.
const MaxDateFormatLength = 50

// DefaultDateFormat is used when "auto" is specified without a format.
const DefaultDateFormat = "YYYY-MM-DD"

// Presets are named shortcuts for common date formats.
var Presets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
	"german":   "DD.MM.YYYY",
}

// layouts maps a run of one token letter, by run length, to its Go layout.
var layouts = map[byte]map[int]string{
	'Y': {2: "06", 4: "2006"},
	'M': {1: "1", 2: "01", 3: "Jan", 4: "January"},
	'D': {1: "2", 2: "02"},
}

// Layout converts a format such as "DD/MM/YYYY" to a Go time layout.
// Tokens are runs of Y (YY, YYYY), M (M to MMMM) and D (D, DD). Text in
// brackets is literal: "[Day] D" keeps "Day". Anything else is copied.
func Layout(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxDateFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var b strings.Builder
	for i := 0; i < len(format); {
		c := format[i]

		if c == '[' {
			end := strings.IndexByte(format[i+1:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, i)
			}
			b.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}

		byLen, ok := layouts[c]
		if !ok {
			b.WriteByte(c)
			i++
			continue
		}

		n := 1
		for i+n < len(format) && format[i+n] == c {
			n++
		}
		layout, ok := byLen[n]
		if !ok {
			return "", fmt.Errorf("%w: unsupported token %q", ErrInvalidDateFormat, format[i:i+n])
		}
		b.WriteString(layout)
		i += n
	}
	return b.String(), nil
}

// IsAuto reports whether value requests a generated date.
func IsAuto(value string) bool {
	lower := strings.ToLower(value)
	return lower == "auto" || strings.HasPrefix(lower, "auto:")
}

// ResolveDate formats t according to an auto value:
//   - "auto" uses DefaultDateFormat
//   - "auto:FORMAT" uses FORMAT, e.g. "auto:DD/MM/YYYY"
//   - "auto:PRESET" uses a named preset (iso, european, us, long, german)
//
// Any other value is returned unchanged.
func ResolveDate(value string, t time.Time) (string, error) {
	if !IsAuto(value) {
		return value, nil
	}

	format := DefaultDateFormat
	if len(value) > len("auto") {
		format = value[len("auto:"):]
		if format == "" {
			return "", fmt.Errorf("%w: format cannot be empty after \"auto:\"", ErrInvalidDateFormat)
		}
		if preset, ok := Presets[strings.ToLower(format)]; ok {
			format = preset
		}
	}

	layout, err := Layout(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}
