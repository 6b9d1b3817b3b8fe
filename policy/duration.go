package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// MinAuctionDuration is the shortest auction a regular channel accepts.
	MinAuctionDuration int64 = 3_600

	// SpeedMinDuration and SpeedMaxDuration bound speed-channel auctions.
	SpeedMinDuration int64 = 600
	SpeedMaxDuration int64 = 3_600
)

// durationPattern matches compact day/hour/minute tokens such as "3d",
// "4d12h" or "1h30m", with optional long-form unit names.
var durationPattern = regexp.MustCompile(
	`^(?:(\d+)d(?:ays?)?)?(?:(\d+)h(?:ours?)?)?(?:(\d+)m(?:inutes?)?)?$`)

// ParseDuration parses compact duration text and validates it against the
// channel-class minimum and the computed maximum. Speed channels allow a
// shorter minimum but carry a fixed one-hour cap. It returns a normalized
// human-readable label, the absolute end time in unix seconds, and the
// effective maximum applied.
func ParseDuration(text string, maxSeconds int64, speed bool, now time.Time) (string, int64, int64, error) {
	total, err := ParseTotalSeconds(text)
	if err != nil {
		return "", 0, 0, err
	}

	min := MinAuctionDuration
	max := maxSeconds
	if speed {
		min = SpeedMinDuration
		if max > SpeedMaxDuration {
			max = SpeedMaxDuration
		}
	}

	if total < min {
		return "", 0, 0, reject(TooShort, "minimum duration is %s", FormatSeconds(min))
	}
	if total > max {
		return "", 0, 0, reject(TooLong, "duration too long, maximum is %s", FormatSeconds(max))
	}

	return formatDuration(total), now.Unix() + total, max, nil
}

// ParseTotalSeconds parses compact duration text into seconds without any
// range validation. Used by extend/shorten, where the delta has no floor.
func ParseTotalSeconds(text string) (int64, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), " ", "")
	if normalized == "" {
		return 0, reject(InvalidFormat, "empty duration, examples: 3d, 4d12h, 30m, 1h30m")
	}

	m := durationPattern.FindStringSubmatch(normalized)
	if m == nil {
		return 0, reject(InvalidFormat, "invalid duration %q, examples: 3d, 4d12h, 30m, 1h30m", text)
	}

	days := atoiDefault(m[1])
	hours := atoiDefault(m[2])
	minutes := atoiDefault(m[3])
	return days*86_400 + hours*3_600 + minutes*60, nil
}

func atoiDefault(s string) int64 {
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func formatDuration(totalSeconds int64) string {
	days := totalSeconds / 86_400
	hours := (totalSeconds % 86_400) / 3_600
	minutes := (totalSeconds % 3_600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 {
		return "0 minutes"
	}
	return strings.Join(parts, " ")
}

// FormatSeconds renders a second count as a human-readable label.
func FormatSeconds(seconds int64) string {
	return formatDuration(seconds)
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
