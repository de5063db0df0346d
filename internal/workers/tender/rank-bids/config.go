package rankbids

import "time"

type Config struct {
	Timeout       time.Duration
	MaxRankedBids int // 0 returns every bid
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		MaxRankedBids: 500,
	}
}
