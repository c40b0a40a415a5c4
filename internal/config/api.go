package config

type APIConfig struct {
	HTTPPort  string `yaml:"port"`
	StaticDir string `yaml:"static-dir"`
}

func (s *APIConfig) Port() string {
	return s.HTTPPort
}

func (s *APIConfig) Static() string {
	return s.StaticDir
}
