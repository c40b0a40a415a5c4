package config

type AppConfig struct {
	TZ                string  `yaml:"timezone"`
	DupPolicy         string  `yaml:"duplicate-policy"`
	USDThresholdValue float64 `yaml:"usd-threshold"`
	StorageTimeoutSec int64   `yaml:"storage-timeout-seconds"`
}

func (s *AppConfig) Timezone() string {
	return s.TZ
}

// DuplicatePolicy is "overwrite" or "reject"; see collection.DuplicatePolicy.
func (s *AppConfig) DuplicatePolicy() string {
	return s.DupPolicy
}

// USDThreshold separates a lone USD rate from a lone CNY rate:
// values at or above it are taken as USD.
func (s *AppConfig) USDThreshold() float64 {
	return s.USDThresholdValue
}

func (s *AppConfig) StorageTimeoutSeconds() int64 {
	return s.StorageTimeoutSec
}
