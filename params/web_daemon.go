package params

import "time"

type WebDaemonConfig struct {
	ListenerConfig `mapstructure:",squash"`

	// ExportCacheTTL is how long rendered trip exports are cached.
	ExportCacheTTL time.Duration `mapstructure:"export_cache_ttl"`

	// Token, if set, must accompany requests that change state,
	// as an Authorization bearer token or an api_token query param.
	Token string `mapstructure:"token" json:"-"`
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "localhost:3000",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: DefaultWebListenerConfig(),
		ExportCacheTTL: time.Hour,
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig: ListenerConfig{
			Network: "tcp",
			Address: "localhost:3333",
		},
		ExportCacheTTL: time.Minute,
	}
}
