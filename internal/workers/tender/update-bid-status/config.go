package updatebidstatus

import "time"

type Config struct {
	Timeout time.Duration
	// RejectRemainingOnAward rejects the other open bids of the tender when
	// a bid is awarded and the job does not say otherwise.
	RejectRemainingOnAward bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:                10 * time.Second,
		RejectRemainingOnAward: true,
	}
}
