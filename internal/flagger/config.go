package flagger

import "time"

type Config struct {
	// UnavailableLong is how long an entity must be unavailable before it is
	// flagged for investigation.
	UnavailableLong time.Duration
	BytesPerState   int64
	BytesPerStat    int64
}

func DefaultConfig() Config {
	return Config{
		UnavailableLong: 7 * 24 * time.Hour,
		BytesPerState:   100,
		BytesPerStat:    50,
	}
}
