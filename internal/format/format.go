// Package format turns raw counts, sizes and timestamps into display strings.
package format

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Bytes renders n with base-1024 units.
func Bytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(byteUnits) {
		i = len(byteUnits) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))

	switch {
	case i == 0:
		return fmt.Sprintf("%d %s", n, byteUnits[0])
	case v >= 100:
		return fmt.Sprintf("%.0f %s", v, byteUnits[i])
	case v >= 10:
		return fmt.Sprintf("%.1f %s", v, byteUnits[i])
	default:
		return fmt.Sprintf("%.2f %s", v, byteUnits[i])
	}
}

// MB renders bytes as megabytes: one decimal under 10 MB, whole numbers above.
func MB(n int64) string {
	mb := float64(n) / (1024 * 1024)
	if mb < 10 {
		return strconv.FormatFloat(mb, 'f', 1, 64)
	}
	return strconv.FormatFloat(math.Round(mb), 'f', 0, 64)
}

var numberPrinter = message.NewPrinter(language.English)

// Number renders n with thousands separators.
func Number(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}

// Interval renders an update interval. Zero means "no interval" and renders empty.
func Interval(seconds float64) string {
	switch {
	case seconds == 0:
		return ""
	case seconds < 60:
		return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
	case seconds < 3600:
		m := seconds / 60
		if m >= 10 {
			return fmt.Sprintf("%.1fmin", m)
		}
		return fmt.Sprintf("%.2fmin", m)
	default:
		h := seconds / 3600
		if h >= 10 {
			return fmt.Sprintf("%.1fh", h)
		}
		return fmt.Sprintf("%.2fh", h)
	}
}

// Duration renders whole units of a span given in seconds.
func Duration(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	default:
		return plural(seconds/86400, "day")
	}
}

// Date renders t in local time, or "" for the zero time.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// Age renders how long ago something happened; ok=false renders "unknown".
func Age(age time.Duration, ok bool) string {
	if !ok {
		return "unknown"
	}
	seconds := int64(age / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return plural(days, "day") + " ago"
	case hours > 0:
		return plural(hours, "hour") + " ago"
	case minutes > 0:
		return plural(minutes, "minute") + " ago"
	default:
		return plural(seconds, "second") + " ago"
	}
}

// DisabledAge describes how stale the statistics of a disabled entity are.
func DisabledAge(lastStatsUpdate time.Time, now time.Time) string {
	if lastStatsUpdate.IsZero() {
		return "unknown duration"
	}
	days := int64(now.Sub(lastStatsUpdate) / (24 * time.Hour))

	switch {
	case days < 1:
		return "stats updated today"
	case days < 30:
		return "stats " + plural(days, "day") + " old"
	case days < 365:
		return "stats " + plural(days/30, "month") + " old"
	}

	years := days / 365
	months := (days % 365) / 30
	if months == 0 {
		return "stats " + plural(years, "year") + " old"
	}
	return "stats " + plural(years, "year") + ", " + plural(months, "month") + " old"
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
