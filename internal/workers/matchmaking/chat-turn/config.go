// internal/workers/matchmaking/chat-turn/config.go
package chatturn

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 2 * time.Minute,
	}
}
