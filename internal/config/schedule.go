package config

type ScheduleConfig struct {
	Request string `yaml:"request-cron"`
	Repeat  string `yaml:"repeat-cron"`
}

// RequestSpec fires the morning rates request.
func (s *ScheduleConfig) RequestSpec() string {
	return s.Request
}

// RepeatSpec fires the later nudge if the cycle is still incomplete.
func (s *ScheduleConfig) RepeatSpec() string {
	return s.Repeat
}
