package params

import "path/filepath"

type StoreConfig struct {
	// Path is the bbolt database file holding trips and preferences.
	Path string `mapstructure:"path"`
	// RecentLimit is the length of the observable recent trips list.
	RecentLimit int `mapstructure:"recent_limit"`
	// CacheSize is the number of trips kept in the lookup cache.
	CacheSize int `mapstructure:"cache_size"`
}

func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Path:        filepath.Join(DatadirRoot, DBFileName),
		RecentLimit: 20,
		CacheSize:   64,
	}
}
