package grading

import "time"

// Config tunes the model calls made while grading.
type Config struct {
	// TextTemperature is kept low so replies keep their structure while
	// comments stay natural.
	TextTemperature float64 `env:"TEXT_TEMPERATURE,default=0.3"`
	TextMaxTokens   int     `env:"TEXT_MAX_TOKENS,default=4096"`

	VisionTemperature float64 `env:"VISION_TEMPERATURE"`
	VisionMaxTokens   int     `env:"VISION_MAX_TOKENS,default=1024"`

	// Timeout bounds both model calls of one request. Zero means only the
	// caller's context applies.
	Timeout time.Duration
}

// DefaultConfig returns the defaults used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		TextTemperature: 0.3,
		TextMaxTokens:   4096,
		VisionMaxTokens: 1024,
		Timeout:         60 * time.Second,
	}
}
