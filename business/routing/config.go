package routing

import (
	"context"
	"time"

	"github.com/choresh/PspRouter-sub000/domain"
)

type Config struct {
	Policy   string
	Proposer string
	Epsilon  float64

	// deterministic fallback weights
	WAuth   float64
	WFee    float64
	WFixed  float64
	WBias   float64
	WSCA    float64
	WYellow float64
	WRisk   float64

	// retry contract attached to non-veto decisions
	RetryWindowMs int
	MaxRetries    int

	// how long the external proposer may take before we fall back
	ProposerTimeout time.Duration

	// process-level knobs, never overridden per segment
	BINKey         string
	LessonLimit    int
	AuthRateWindow time.Duration
}

const (
	defaultPolicy   = domain.PolicyEpsilonGreedy
	defaultProposer = domain.ProposerReasoner
	defaultEpsilon  = 0.1

	defaultWAuth   = 1.0
	defaultWFee    = 1.0
	defaultWFixed  = 1.0
	defaultWBias   = 0.5
	defaultWSCA    = 0.05
	defaultWYellow = 0.1
	defaultWRisk   = 0.2

	defaultRetryWindowMs   = 60000
	defaultMaxRetries      = 2
	defaultProposerTimeout = 1500 * time.Millisecond

	defaultLessonLimit    = 5
	defaultAuthRateWindow = 24 * time.Hour
)

func DefaultConfig() Config {
	return Config{
		Policy:   defaultPolicy,
		Proposer: defaultProposer,
		Epsilon:  defaultEpsilon,

		WAuth:   defaultWAuth,
		WFee:    defaultWFee,
		WFixed:  defaultWFixed,
		WBias:   defaultWBias,
		WSCA:    defaultWSCA,
		WYellow: defaultWYellow,
		WRisk:   defaultWRisk,

		RetryWindowMs:   defaultRetryWindowMs,
		MaxRetries:      defaultMaxRetries,
		ProposerTimeout: defaultProposerTimeout,

		LessonLimit:    defaultLessonLimit,
		AuthRateWindow: defaultAuthRateWindow,
	}
}

// read per-segment router config from DB.
type ConfigRepository interface {
	GetConfig(ctx context.Context, segment string) (domain.RouterConfig, bool, error)
	UpsertConfig(ctx context.Context, cfg domain.RouterConfig) error
}
