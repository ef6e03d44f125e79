package tle

import (
	"fmt"
	"strconv"
	"strings"
)

// field is a numeric column range of a TLE line as go-satellite reads it.
type field struct {
	name  string
	value func(line string) string
	isInt bool
}

func span(lo, hi int) func(string) string {
	return func(l string) string { return strings.Replace(l[lo:hi], " ", "", 2) }
}

// mantissa rebuilds the implied-decimal exponent fields (nddot, bstar).
func mantissa(lo int) func(string) string {
	return func(l string) string {
		return strings.Replace(l[lo:lo+1]+"."+l[lo+1:lo+6]+"e"+l[lo+6:lo+8], " ", "", 2)
	}
}

var line1Fields = []field{
	{name: "catalog number", value: func(l string) string { return strings.TrimSpace(l[2:7]) }, isInt: true},
	{name: "epoch year", value: func(l string) string { return l[18:20] }, isInt: true},
	{name: "epoch day", value: func(l string) string { return l[20:32] }},
	{name: "mean motion dot", value: span(33, 43)},
	{name: "mean motion ddot", value: mantissa(44)},
	{name: "bstar", value: mantissa(53)},
}

var line2Fields = []field{
	{name: "inclination", value: span(8, 16)},
	{name: "raan", value: span(17, 25)},
	{name: "eccentricity", value: func(l string) string { return "." + l[26:33] }},
	{name: "argument of perigee", value: span(34, 42)},
	{name: "mean anomaly", value: span(43, 51)},
	{name: "mean motion", value: span(52, 63)},
}

// Validate checks a TLE pair strictly enough that SGP4 initialisation cannot
// fail on it: 69-column lines, line numbers, mod-10 checksums and every
// numeric field the propagator parses.
func Validate(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	for i, l := range []string{line1, line2} {
		n := i + 1
		if len(l) != 69 {
			return fmt.Errorf("line%d length %d, expected 69", n, len(l))
		}
		if l[0] != byte('0'+n) {
			return fmt.Errorf("line%d must start with '%d', got '%c'", n, n, l[0])
		}
		if want, got := Checksum(l), l[68]; got != '0'+want {
			return fmt.Errorf("line%d checksum %c, expected %d", n, got, want)
		}
	}

	if err := checkFields(1, line1, line1Fields); err != nil {
		return err
	}
	return checkFields(2, line2, line2Fields)
}

func checkFields(n int, line string, fields []field) error {
	for _, f := range fields {
		v := f.value(line)
		var err error
		if f.isInt {
			_, err = strconv.Atoi(v)
		} else {
			_, err = strconv.ParseFloat(v, 64)
		}
		if err != nil {
			return fmt.Errorf("line%d %s %q: %w", n, f.name, v, err)
		}
	}
	return nil
}

// Checksum returns the mod-10 sum of the first 68 columns, counting digits
// at face value and '-' as one.
func Checksum(line string) byte {
	var sum int
	for _, c := range line[:min(len(line), 68)] {
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}
	return byte(sum % 10)
}
