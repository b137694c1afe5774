package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/hupe1980/commonpool/core"
)

type scriptStep struct {
	reply string
	err   error
}

type scriptRule struct {
	contains string
	step     scriptStep
}

// ScriptedCapability is a deterministic core.Capability for tests. Queued
// steps are consumed first, then rules matched against the prompt
// instructions, then the fallback reply.
//
//	c := NewScriptedCapability("ok").On("facilitator", "fair trade", nil)
type ScriptedCapability struct {
	mu       sync.Mutex
	fallback string
	queue    []scriptStep
	rules    []scriptRule
	prompts  []core.Prompt
	block    <-chan struct{}
	entered  chan struct{}
}

var _ core.Capability = (*ScriptedCapability)(nil)

// NewScriptedCapability creates a capability answering fallback by default.
func NewScriptedCapability(fallback string) *ScriptedCapability {
	return &ScriptedCapability{fallback: fallback}
}

// Enqueue appends a reply (or error when err != nil) to the queue (chainable).
func (c *ScriptedCapability) Enqueue(reply string, err error) *ScriptedCapability {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, scriptStep{reply: reply, err: err})
	return c
}

// On answers prompts whose instructions contain the given text (chainable).
func (c *ScriptedCapability) On(contains, reply string, err error) *ScriptedCapability {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules = append(c.rules, scriptRule{contains: contains, step: scriptStep{reply: reply, err: err}})
	return c
}

// BlockOn makes every call wait until ch is closed (or the context ends).
// Entered reports each call that reached the block.
func (c *ScriptedCapability) BlockOn(ch <-chan struct{}) *ScriptedCapability {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = ch
	c.entered = make(chan struct{}, 64)
	return c
}

// Entered receives once per call that is waiting on the BlockOn channel.
func (c *ScriptedCapability) Entered() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entered
}

// Respond implements core.Capability.
func (c *ScriptedCapability) Respond(ctx context.Context, prompt core.Prompt) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	step := c.next(prompt)
	block, entered := c.block, c.entered
	c.mu.Unlock()

	if block != nil {
		entered <- struct{}{}
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return step.reply, step.err
}

func (c *ScriptedCapability) next(prompt core.Prompt) scriptStep {
	if len(c.queue) > 0 {
		s := c.queue[0]
		c.queue = c.queue[1:]
		return s
	}
	for _, r := range c.rules {
		if strings.Contains(prompt.Instructions, r.contains) {
			return r.step
		}
	}
	return scriptStep{reply: c.fallback}
}

// Prompts returns every prompt received so far.
func (c *ScriptedCapability) Prompts() []core.Prompt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Prompt{}, c.prompts...)
}

// Calls returns the number of Respond calls.
func (c *ScriptedCapability) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}
