package params

import (
	"os"
	"path/filepath"
)

const (
	AppName        = "cleanspeed"
	DBFileName     = "cleanspeed.db"
	ConfigFileName = "config"
	EnvPrefix      = "CLEANSPEED"
)

// DatadirRoot is the default home of the trip database and config file.
var DatadirRoot = func() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "."+AppName)
	}
	return filepath.Join(home, "."+AppName)
}()
