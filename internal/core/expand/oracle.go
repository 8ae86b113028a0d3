package expand

import (
	"context"
	"fmt"
	"time"

	"github.com/latticelabs/lattice/internal/core/common"
	"github.com/latticelabs/lattice/internal/llm"
)

// proposal is the oracle's wire shape for one node. Positions come in as
// [start, end] pairs relative to the content window the oracle was shown.
type proposal struct {
	Name          string   `json:"name"`
	Synthesis     string   `json:"synthesis"`
	Confidence    float64  `json:"confidence"`
	Language      string   `json:"language,omitempty"`
	Positions     [][]int  `json:"positions"`
	KeyClaims     []string `json:"key_claims"`
	OpenQuestions []string `json:"open_questions"`
}

type domainResponse struct {
	Domain   proposal   `json:"domain"`
	Children []proposal `json:"children"`
}

type childrenResponse struct {
	Children []proposal `json:"children"`
}

// oracle wraps the LLM client with the per-call timeout and call counting the
// expansion protocol requires. A timeout or malformed response is an oracle
// failure, handled by the caller under the no-fallback policy.
type oracle struct {
	llm     llm.LLMClient
	timeout time.Duration
}

func (o *oracle) call(ctx context.Context, prompt string) (string, error) {
	callCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.llm.Generate(callCtx, prompt)
}

func (o *oracle) proposeDomain(ctx context.Context, prompt string) (domainResponse, error) {
	raw, err := o.call(ctx, prompt)
	if err != nil {
		return domainResponse{}, fmt.Errorf("oracle call failed: %w", err)
	}
	resp, err := common.ParseJSON[domainResponse](raw)
	if err != nil {
		return domainResponse{}, fmt.Errorf("oracle returned malformed output: %w", err)
	}
	return resp, nil
}

func (o *oracle) proposeChildren(ctx context.Context, prompt string) (childrenResponse, error) {
	raw, err := o.call(ctx, prompt)
	if err != nil {
		return childrenResponse{}, fmt.Errorf("oracle call failed: %w", err)
	}
	resp, err := common.ParseJSON[childrenResponse](raw)
	if err != nil {
		return childrenResponse{}, fmt.Errorf("oracle returned malformed output: %w", err)
	}
	return resp, nil
}
