// Package model defines the provider-agnostic abstractions for talking to
// language models, plus a scripted MockModel.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (Anthropic, Bedrock, OpenAI) implement the Model interface from
// this package so higher layers (capability, agents) remain decoupled from
// vendor SDKs.
package model
