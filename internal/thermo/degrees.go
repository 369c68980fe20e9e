package thermo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Degrees is a temperature in microdegrees Celsius.
//
// Storing the value as a scaled integer keeps exactly six fractional digits
// through storage and serialization with no floating-point drift: a value
// written as 28.000001 reads back as 28.000001.
type Degrees int64

// microPerDegree is the scaling factor between degrees and microdegrees.
const microPerDegree = 1_000_000

// maxFractionDigits is the stored precision; finer input is rejected
// rather than silently rounded.
const maxFractionDigits = 6

// parseOverflowLimit rejects absurd magnitudes before scaling can overflow
// int64. Range policy proper lives in ValidateDegrees.
const parseOverflowLimit = 1e12

// DegreesFromFloat converts a float64 temperature, rounding to the nearest
// microdegree.
func DegreesFromFloat(v float64) Degrees {
	return Degrees(math.Round(v * microPerDegree))
}

// Float64 returns the temperature as a float64 number of degrees.
func (d Degrees) Float64() float64 {
	return float64(d) / microPerDegree
}

// String formats the temperature with exactly six fractional digits.
func (d Degrees) String() string {
	micro := int64(d)
	sign := ""
	if micro < 0 {
		sign = "-"
		micro = -micro
	}
	return fmt.Sprintf("%s%d.%06d", sign, micro/microPerDegree, micro%microPerDegree)
}

// MarshalJSON emits the value as a fixed-point JSON number.
func (d Degrees) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (d *Degrees) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDegrees(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDegrees parses a decimal temperature string into microdegrees.
//
// Plain decimals are converted exactly. At most six fractional digits are
// accepted; a seventh digit means the caller is asking for precision the
// store cannot hold, which is an input error rather than a rounding
// opportunity.
func ParseDegrees(s string) (Degrees, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: degrees_c is empty", ErrInvalidInput)
	}

	// Exponent notation falls back to float conversion; the magnitude
	// guard keeps the scaling below int64 overflow.
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: degrees_c %q is not a number", ErrInvalidInput, s)
		}
		if math.Abs(f) > parseOverflowLimit {
			return 0, fmt.Errorf("%w: degrees_c %q out of range", ErrInvalidInput, s)
		}
		return DegreesFromFloat(f), nil
	}

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > maxFractionDigits {
		return 0, fmt.Errorf("%w: degrees_c supports at most %d decimal places", ErrInvalidInput, maxFractionDigits)
	}

	// The sign was consumed above, so both parts must be bare digit runs.
	// ParseUint rejects embedded signs that ParseInt would let through.
	whole, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: degrees_c %q is not a number", ErrInvalidInput, s)
	}
	if whole > parseOverflowLimit {
		return 0, fmt.Errorf("%w: degrees_c %q out of range", ErrInvalidInput, s)
	}

	micro := int64(whole) * microPerDegree
	if fracPart != "" {
		frac, err := strconv.ParseUint(fracPart+strings.Repeat("0", maxFractionDigits-len(fracPart)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: degrees_c %q is not a number", ErrInvalidInput, s)
		}
		micro += int64(frac)
	}
	if neg {
		micro = -micro
	}

	return Degrees(micro), nil
}
