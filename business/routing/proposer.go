package routing

import (
	"context"
	"fmt"

	"github.com/choresh/PspRouter-sub000/business/bandit"
	"github.com/choresh/PspRouter-sub000/domain"
)

// ProposalRequest is everything a proposer may read when suggesting a
// candidate. Context.Candidates holds only the admissible set, already
// guardrail-filtered and in input order.
type ProposalRequest struct {
	Context     domain.RouteContext
	DecisionID  string
	SegmentKey  string
	Policy      string
	Epsilon     float64
	Features    map[string]float64
	Constraints domain.DecisionConstraints
}

// CandidateProposer suggests a routing decision ahead of the
// deterministic fallback. A failed, slow or invalid proposal is a
// normal protocol event, never an error to the caller.
type CandidateProposer interface {
	Name() string
	Propose(ctx context.Context, req ProposalRequest) (domain.RouteDecision, error)
}

// ReasonerRequest is the wire payload sent to the external reasoner
// and to the ML predictor.
type ReasonerRequest struct {
	SchemaVersion       string                        `json:"schemaVersion"`
	DecisionID          string                        `json:"decisionId"`
	Transaction         domain.Transaction            `json:"transaction"`
	Candidates          []domain.CandidateSnapshot    `json:"candidates"`
	MerchantPreferences map[string]any                `json:"merchantPreferences,omitempty"`
	SegmentStats        map[string]domain.ArmStatView `json:"segmentStats,omitempty"`
	RelevantLessons     []domain.LessonMatch          `json:"relevantLessons,omitempty"`
}

// ReasonerClient calls the LLM reasoner and decodes its decision
// document. Implementations own retries and response parsing.
type ReasonerClient interface {
	ProposeRoute(ctx context.Context, req ReasonerRequest) (domain.RouteDecision, error)
}

// PredictorClient calls the lightweight ML scorer. It returns only a
// ranked pick; the proposer builds the decision document around it.
type PredictorClient interface {
	PredictRoute(ctx context.Context, req ReasonerRequest) (candidate string, alternates []string, confidence float64, err error)
}

func reasonerRequest(req ProposalRequest) ReasonerRequest {
	return ReasonerRequest{
		SchemaVersion:       domain.DecisionSchemaVersion,
		DecisionID:          req.DecisionID,
		Transaction:         req.Context.Transaction,
		Candidates:          req.Context.Candidates,
		MerchantPreferences: req.Context.MerchantPrefs,
		SegmentStats:        req.Context.SegmentStats,
		RelevantLessons:     req.Context.Lessons,
	}
}

// ---- reasoner ----

type reasonerProposer struct {
	client ReasonerClient
}

func (p *reasonerProposer) Name() string { return domain.ProposerReasoner }

func (p *reasonerProposer) Propose(ctx context.Context, req ProposalRequest) (domain.RouteDecision, error) {
	return p.client.ProposeRoute(ctx, reasonerRequest(req))
}

// ---- predictor ----

type predictorProposer struct {
	client PredictorClient
}

func (p *predictorProposer) Name() string { return domain.ProposerPredictor }

func (p *predictorProposer) Propose(ctx context.Context, req ProposalRequest) (domain.RouteDecision, error) {
	candidate, alternates, confidence, err := p.client.PredictRoute(ctx, reasonerRequest(req))
	if err != nil {
		return domain.RouteDecision{}, err
	}
	return domain.RouteDecision{
		SchemaVersion: domain.DecisionSchemaVersion,
		DecisionID:    req.DecisionID,
		Candidate:     candidate,
		Alternates:    alternates,
		Reasoning:     fmt.Sprintf("ml predictor ranked %s first with confidence %.4f", candidate, confidence),
		Guardrail:     domain.GuardrailNone,
		Constraints:   req.Constraints,
		FeaturesUsed:  []string{fmt.Sprintf("confidence:%.4f", confidence)},
	}, nil
}

// ---- bandit ----

type banditProposer struct {
	engine *bandit.Engine
}

func (p *banditProposer) Name() string { return domain.ProposerBandit }

func (p *banditProposer) Propose(ctx context.Context, req ProposalRequest) (domain.RouteDecision, error) {
	if err := ctx.Err(); err != nil {
		return domain.RouteDecision{}, fmt.Errorf("context error: %w", err)
	}

	arms := make([]string, 0, len(req.Context.Candidates))
	for _, c := range req.Context.Candidates {
		arms = append(arms, c.Name)
	}

	arm, err := p.engine.Select(req.SegmentKey, arms, bandit.SelectSpec{
		Policy:   req.Policy,
		Epsilon:  req.Epsilon,
		Features: req.Features,
	})
	if err != nil {
		return domain.RouteDecision{}, err
	}

	alternates := make([]string, 0, len(arms)-1)
	for _, name := range arms {
		if name != arm {
			alternates = append(alternates, name)
		}
	}

	view := p.engine.ArmView(req.SegmentKey, arm)
	return domain.RouteDecision{
		SchemaVersion: domain.DecisionSchemaVersion,
		DecisionID:    req.DecisionID,
		Candidate:     arm,
		Alternates:    alternates,
		Reasoning: fmt.Sprintf(
			"%s policy picked %s for segment %s (mean_reward=%.4f over %d pulls)",
			req.Policy, arm, req.SegmentKey, view.AvgReward, view.Count,
		),
		Guardrail:   domain.GuardrailNone,
		Constraints: req.Constraints,
		FeaturesUsed: []string{
			"policy:" + req.Policy,
			fmt.Sprintf("mean_reward:%.4f", view.AvgReward),
			fmt.Sprintf("pulls:%d", view.Count),
		},
	}, nil
}

// BuildProposers wires the available proposer implementations. Nil
// clients are simply absent; a segment configured for a missing
// proposer falls straight through to the deterministic fallback.
func BuildProposers(engine *bandit.Engine, reasoner ReasonerClient, predictor PredictorClient) map[string]CandidateProposer {
	out := map[string]CandidateProposer{}
	if reasoner != nil {
		out[domain.ProposerReasoner] = &reasonerProposer{client: reasoner}
	}
	if predictor != nil {
		out[domain.ProposerPredictor] = &predictorProposer{client: predictor}
	}
	if engine != nil {
		out[domain.ProposerBandit] = &banditProposer{engine: engine}
	}
	return out
}
