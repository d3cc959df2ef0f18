package scraper

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultAcceptLanguage    = "en-US,en;q=0.5"
	defaultTimeout           = 30 // seconds
	defaultRequestsPerSecond = 2.0
)

// PlatformSettings controls how pages are fetched from one platform.
type PlatformSettings struct {
	UserAgent         string  `yaml:"user_agent"`
	AcceptLanguage    string  `yaml:"accept_language"`
	Timeout           int     `yaml:"timeout"` // seconds
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

func (s PlatformSettings) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

type Settings struct {
	Platforms map[string]PlatformSettings `yaml:"platforms"`
}

// For returns the settings for one platform with defaults applied.
func (s *Settings) For(p Platform, base PlatformSettings) PlatformSettings {
	out := base
	if s != nil {
		if ps, ok := s.Platforms[string(p)]; ok {
			if ps.UserAgent != "" {
				out.UserAgent = ps.UserAgent
			}
			if ps.AcceptLanguage != "" {
				out.AcceptLanguage = ps.AcceptLanguage
			}
			if ps.Timeout != 0 {
				out.Timeout = ps.Timeout
			}
			if ps.RequestsPerSecond != 0 {
				out.RequestsPerSecond = ps.RequestsPerSecond
			}
			if ps.Burst != 0 {
				out.Burst = ps.Burst
			}
		}
	}
	setDefaults(&out)
	return out
}

// LoadSettings reads per-platform fetch settings from a YAML file.
// An empty path yields empty settings so every platform uses the defaults.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return &Settings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSettings(&settings); err != nil {
		return nil, fmt.Errorf("invalid platform settings %s: %w", path, err)
	}

	return &settings, nil
}

func setDefaults(s *PlatformSettings) {
	if s.AcceptLanguage == "" {
		s.AcceptLanguage = defaultAcceptLanguage
	}
	if s.Timeout == 0 {
		s.Timeout = defaultTimeout
	}
	if s.RequestsPerSecond == 0 {
		s.RequestsPerSecond = defaultRequestsPerSecond
	}
	if s.Burst == 0 {
		s.Burst = 1
	}
}

func validateSettings(settings *Settings) error {
	for name, ps := range settings.Platforms {
		if Platform(name) != PlatformInstagram && Platform(name) != PlatformTikTok {
			return fmt.Errorf("unknown platform '%s'", name)
		}
		if ps.Timeout < 0 {
			return fmt.Errorf("%s: timeout must be non-negative", name)
		}
		if ps.RequestsPerSecond < 0 {
			return fmt.Errorf("%s: requests per second must be non-negative", name)
		}
		if ps.Burst < 0 {
			return fmt.Errorf("%s: burst must be non-negative", name)
		}
	}
	return nil
}
