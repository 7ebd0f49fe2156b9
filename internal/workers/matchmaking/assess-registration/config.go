// internal/workers/matchmaking/assess-registration/config.go
package assessregistration

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// The pipeline makes several AI calls, each with its own fallback
		// chain, so the job timeout is generous.
		Timeout: 5 * time.Minute,
	}
}
