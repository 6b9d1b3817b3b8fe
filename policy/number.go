package policy

import (
	"strconv"
	"strings"
)

// ParseCompactNumber parses shorthand currency amounts: plain integers with
// optional comma or underscore separators, or a decimal mantissa with a
// k/m/b suffix ("300k", "1.5m", "2b").
func ParseCompactNumber(text string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return 0, reject(InvalidFormat, "empty amount, examples: 100000, 300k, 1.5m")
	}

	multiplier := int64(1)
	switch s[len(s)-1] {
	case 'k':
		multiplier = 1_000
		s = s[:len(s)-1]
	case 'm':
		multiplier = 1_000_000
		s = s[:len(s)-1]
	case 'b':
		multiplier = 1_000_000_000
		s = s[:len(s)-1]
	}

	if multiplier == 1 {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, reject(InvalidFormat, "invalid amount %q, examples: 100000, 300k, 1.5m", text)
		}
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, reject(InvalidFormat, "invalid amount %q, examples: 100000, 300k, 1.5m", text)
	}
	return int64(f * float64(multiplier)), nil
}
