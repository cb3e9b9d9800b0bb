package store

import (
	"github.com/newsystem-ai/recording-insights/internal/config"
)

func configWithDriver(driver string) config.StoreConfig {
	return config.StoreConfig{Driver: driver}
}
