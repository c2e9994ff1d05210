package params

type SourceConfig struct {
	// DedupeWindow is how many recent fixes are remembered to drop exact duplicates.
	// Zero disables deduplication.
	DedupeWindow int `mapstructure:"dedupe_window"`

	// Realtime paces replayed fixes by their own timestamps.
	Realtime bool `mapstructure:"realtime"`

	// Speedup divides the replay delay between fixes when Realtime is set.
	Speedup float64 `mapstructure:"speedup"`
}

func DefaultSourceConfig() *SourceConfig {
	return &SourceConfig{
		DedupeWindow: 1_000,
		Realtime:     false,
		Speedup:      1,
	}
}
