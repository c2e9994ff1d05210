package params

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the whole application configuration.
type Config struct {
	Tracker *TrackerConfig   `mapstructure:"tracker"`
	Store   *StoreConfig     `mapstructure:"store"`
	Source  *SourceConfig    `mapstructure:"source"`
	Web     *WebDaemonConfig `mapstructure:"web"`

	// Places enables reverse geocoded trip endpoint labels.
	Places bool `mapstructure:"places"`
}

func DefaultConfig() *Config {
	return &Config{
		Tracker: DefaultTrackerConfig(),
		Store:   DefaultStoreConfig(),
		Source:  DefaultSourceConfig(),
		Web:     DefaultWebDaemonConfig(),
	}
}

// SetDefaults registers the defaults with v, so that env vars
// (eg. CLEANSPEED_TRACKER_ACCURACY_THRESHOLD) can override every key.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("tracker.accuracy_threshold", d.Tracker.AccuracyThreshold)
	v.SetDefault("tracker.max_fix_gap", d.Tracker.MaxFixGap)
	v.SetDefault("tracker.sample_interval", d.Tracker.SampleInterval)
	v.SetDefault("tracker.max_waypoints", d.Tracker.MaxWayPoints)
	v.SetDefault("tracker.tick_interval", d.Tracker.TickInterval)
	v.SetDefault("tracker.stats_interval", d.Tracker.StatsInterval)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.recent_limit", d.Store.RecentLimit)
	v.SetDefault("store.cache_size", d.Store.CacheSize)
	v.SetDefault("source.dedupe_window", d.Source.DedupeWindow)
	v.SetDefault("source.realtime", d.Source.Realtime)
	v.SetDefault("source.speedup", d.Source.Speedup)
	v.SetDefault("web.network", d.Web.Network)
	v.SetDefault("web.address", d.Web.Address)
	v.SetDefault("web.export_cache_ttl", d.Web.ExportCacheTTL)
	v.SetDefault("web.token", d.Web.Token)
	v.SetDefault("places", d.Places)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v over the defaults and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	c := DefaultConfig()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	t := c.Tracker
	switch {
	case t.AccuracyThreshold <= 0:
		return fmt.Errorf("tracker.accuracy_threshold must be positive")
	case t.MaxFixGap <= 0:
		return fmt.Errorf("tracker.max_fix_gap must be positive")
	case t.SampleInterval < 0:
		return fmt.Errorf("tracker.sample_interval must not be negative")
	case t.MaxWayPoints < 0:
		return fmt.Errorf("tracker.max_waypoints must not be negative")
	case t.TickInterval <= 0:
		return fmt.Errorf("tracker.tick_interval must be positive")
	}
	if c.Store.RecentLimit <= 0 {
		return fmt.Errorf("store.recent_limit must be positive")
	}
	if c.Source.Speedup <= 0 {
		return fmt.Errorf("source.speedup must be positive")
	}
	return nil
}
