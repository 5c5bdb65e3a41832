package shared

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the format layout for parsing intraday timestamps.
	DateLayout = "2006-01-02 15:04:05"
	// DayLayout is the format layout for parsing daily bar dates.
	DayLayout = "2006-01-02"
	// NewYorkLocation is the timezone location for new york.
	NewYorkLocation = "America/New_York"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinute
	OneHour
	OneDay
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case OneHour:
		return "1H"
	case OneDay:
		return "1D"
	default:
		return "unknown"
	}
}

// ParseTimeframe parses a timeframe from the provided string.
func ParseTimeframe(timeframe string) (Timeframe, error) {
	switch strings.ToLower(timeframe) {
	case "1m":
		return OneMinute, nil
	case "5m":
		return FiveMinute, nil
	case "1h":
		return OneHour, nil
	case "1d", "":
		// Daily bars are the default for comparison charts.
		return OneDay, nil
	default:
		return 0, fmt.Errorf("unknown timeframe provided: %s", timeframe)
	}
}

// DefaultTolerance returns the timestamp matching tolerance suited to the
// timeframe's sampling interval. Intraday series fetched independently
// exhibit jitter of up to a minute; daily bars can disagree by a session.
func (t Timeframe) DefaultTolerance() time.Duration {
	switch t {
	case OneDay:
		return time.Hour * 24
	default:
		return time.Minute
	}
}

// NewYorkTime returns the current time in new york (EST/EDT adjusted automatically).
func NewYorkTime() (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(NewYorkLocation)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("loading new york timezone: %w", err)
	}

	now := time.Now().In(loc)
	return now, loc, nil
}
