package updatemanualscore

import "time"

type Config struct {
	Timeout time.Duration
	// RequireExpectedUpdatedAt rejects writes that do not carry the
	// updatedAt the evaluator last saw.
	RequireExpectedUpdatedAt bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
