package agent

import "github.com/hupe1980/commonpool/internal/util"

// Provider supplies dynamic instruction text at runtime from the actor's state.
type Provider interface {
	Instruction(state map[string]any) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(state map[string]any) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(state map[string]any) (string, error) { return f(state) }

// Instruction represents either a static template or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a text/template string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(state map[string]any) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a template string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether no instruction was configured.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, rendering the template or invoking the provider.
func (i Instruction) Resolve(state map[string]any) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(state)
	}
	return util.RenderTemplate(i.text, state)
}

// DefaultParticipantInstruction frames the responder's evaluation.
const DefaultParticipantInstruction = `You are {{.name}}, a {{.personality}} participant in a common-pool resource exchange.
Your holdings and needs are listed in the data below together with an offer from another participant and a mediator's suggestion.
Decide whether to accept the offer. Start your reply with ACCEPT, REJECT or COUNTER, then give one short sentence of reasoning.`

// DefaultFacilitatorInstruction frames the facilitator's valuation.
const DefaultFacilitatorInstruction = `You are a neutral facilitator in a common-pool resource exchange.
Given the offer, the current state of both parties and the most recent exchanges, suggest whether the terms are fair and what a balanced valuation would be.
Reply in at most two sentences.`
