package capability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/logging"
	"github.com/hupe1980/commonpool/model"
)

var (
	// ErrBudgetExceeded is returned once the per-run call budget is spent.
	ErrBudgetExceeded = errors.New("exceeded max model calls")
	// ErrEmptyReply is returned when the model produced no text.
	ErrEmptyReply = errors.New("empty model reply")
)

// DefaultTimeout bounds a single model call when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Options configures a ModelCapability.
type Options struct {
	// Timeout bounds each call; zero means DefaultTimeout, negative disables it.
	Timeout time.Duration
	// MaxCalls caps the number of calls; zero means unlimited.
	MaxCalls int
	Logger   logging.Logger
}

// ModelCapability turns a core.Prompt into a model request.
type ModelCapability struct {
	model   model.Model
	opts    Options
	limiter *CallLimiter
	logger  logging.Logger
}

var _ core.Capability = (*ModelCapability)(nil)

// New creates a ModelCapability backed by m.
func New(m model.Model, optFns ...func(o *Options)) *ModelCapability {
	opts := Options{Timeout: DefaultTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}

	return &ModelCapability{
		model:   m,
		opts:    opts,
		limiter: NewCallLimiter(opts.MaxCalls),
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// Respond renders the prompt, calls the model and returns its trimmed text.
func (c *ModelCapability) Respond(ctx context.Context, prompt core.Prompt) (string, error) {
	if err := c.limiter.Increment(); err != nil {
		return "", &core.CapabilityError{Op: "respond", Err: err}
	}

	req, err := BuildRequest(prompt)
	if err != nil {
		return "", &core.CapabilityError{Op: "respond", Err: err}
	}

	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := model.Collect(ctx, c.model, req)
	text := strings.TrimSpace(resp.Text)
	if err == nil && text == "" {
		err = ErrEmptyReply
	}

	c.logCall(resp, time.Since(start), err)

	if err != nil {
		return "", &core.CapabilityError{Op: "respond", Err: err}
	}
	return text, nil
}

// Calls returns the number of calls made so far.
func (c *ModelCapability) Calls() int { return c.limiter.Count() }

func (c *ModelCapability) logCall(resp model.Response, dur time.Duration, err error) {
	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	name := c.model.Info().Name

	if sl, ok := c.logger.(*logging.SimLogger); ok {
		sl.LogLLMCall(name, tokens, dur, err == nil, err)
		return
	}
	if err != nil {
		c.logger.Warn("capability.call", "model", name, "duration", dur, "error", err.Error())
		return
	}
	c.logger.Debug("capability.call", "model", name, "duration", dur, "token_count", tokens)
}

// BuildRequest renders a prompt as a model request: the instructions become
// the system prompt and the data map an indented JSON user turn.
func BuildRequest(prompt core.Prompt) (model.Request, error) {
	data := prompt.Data
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return model.Request{}, fmt.Errorf("render prompt data: %w", err)
	}
	return model.Request{
		Instructions: prompt.Instructions,
		Messages:     []model.Message{{Role: "user", Text: string(b)}},
	}, nil
}

// Func adapts a plain function to core.Capability.
type Func func(ctx context.Context, prompt core.Prompt) (string, error)

// Respond calls f.
func (f Func) Respond(ctx context.Context, prompt core.Prompt) (string, error) {
	return f(ctx, prompt)
}

var _ core.Capability = Func(nil)
