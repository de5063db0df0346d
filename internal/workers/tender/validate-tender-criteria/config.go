package validatetendercriteria

import "time"

type Config struct {
	Timeout time.Duration
	// FailOnIssues throws CRITERIA_INVALID instead of completing the job
	// with valid=false.
	FailOnIssues bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      10 * time.Second,
		FailOnIssues: true,
	}
}
