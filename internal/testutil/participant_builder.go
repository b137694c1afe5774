package testutil

import (
	"github.com/hupe1980/commonpool/agent"
	"github.com/hupe1980/commonpool/core"
)

// ParticipantBuilder helps construct participant specs with fluent chaining.
// Example:
//
//	spec := NewParticipantBuilder("Alice").Resource("books", 2).Need("tools").Build()
type ParticipantBuilder struct {
	spec agent.ParticipantSpec
}

// NewParticipantBuilder creates a builder with a "generous" personality.
func NewParticipantBuilder(name string) *ParticipantBuilder {
	return &ParticipantBuilder{spec: agent.ParticipantSpec{
		Name:        name,
		Personality: "generous",
		Resources:   map[core.Resource]int{},
	}}
}

// Personality sets the disposition descriptor (chainable).
func (b *ParticipantBuilder) Personality(p string) *ParticipantBuilder {
	b.spec.Personality = p
	return b
}

// Resource sets a holding (chainable).
func (b *ParticipantBuilder) Resource(r core.Resource, qty int) *ParticipantBuilder {
	b.spec.Resources[r] = qty
	return b
}

// Need appends a need (chainable).
func (b *ParticipantBuilder) Need(r core.Resource) *ParticipantBuilder {
	b.spec.Needs = append(b.spec.Needs, r)
	return b
}

// Build returns the ParticipantSpec.
func (b *ParticipantBuilder) Build() agent.ParticipantSpec { return b.spec }
