package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRequest(text string) Request {
	return Request{Instructions: "sys", Messages: []Message{{Role: "user", Text: text}}}
}

func TestMockModel_MatchesRules(t *testing.T) {
	m := NewMockModel("mock")
	m.AddResponse("books", "I accept the books.")
	m.SetFallback("No thanks.")

	resp, err := Collect(context.Background(), m, userRequest(`{"offer":{"books":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "I accept the books.", resp.Text)

	resp, err = Collect(context.Background(), m, userRequest("tools"))
	require.NoError(t, err)
	assert.Equal(t, "No thanks.", resp.Text)
	assert.Len(t, m.Requests(), 2)
}

func TestMockModel_FailNext(t *testing.T) {
	m := NewMockModel("mock")
	boom := errors.New("boom")
	m.FailNext(boom)

	_, err := Collect(context.Background(), m, userRequest("x"))
	assert.ErrorIs(t, err, boom)

	resp, err := Collect(context.Background(), m, userRequest("x"))
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: x", resp.Text)
}

func TestMockModel_Streaming(t *testing.T) {
	m := NewMockModel("mock")
	m.SetFallback("abc")
	req := userRequest("x")
	req.Stream = true

	resp, err := Collect(context.Background(), m, req)
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Text)
}

func TestMockModel_NoMessages(t *testing.T) {
	_, err := Collect(context.Background(), NewMockModel("mock"), Request{})
	assert.Error(t, err)
}

type silentModel struct{}

func (silentModel) Generate(ctx context.Context, _ Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response)
	errCh := make(chan error)
	go func() {
		<-ctx.Done()
		close(respCh)
		close(errCh)
	}()
	return respCh, errCh
}

func (silentModel) Info() Info { return Info{Name: "silent"} }

func TestCollect_ContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Collect(ctx, silentModel{}, userRequest("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type partialOnlyModel struct{}

func (partialOnlyModel) Generate(context.Context, Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 2)
	errCh := make(chan error)
	respCh <- Response{Partial: true, Text: "he"}
	respCh <- Response{Partial: true, Text: "llo"}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (partialOnlyModel) Info() Info { return Info{Name: "partial"} }

func TestCollect_PartialOnly(t *testing.T) {
	resp, err := Collect(context.Background(), partialOnlyModel{}, userRequest("x"))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
}

type streamedModel struct{}

func (streamedModel) Generate(context.Context, Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 3)
	errCh := make(chan error)
	respCh <- Response{ID: "msg_1", Partial: true, Text: "Even "}
	respCh <- Response{ID: "msg_1", Partial: true, Text: "trade."}
	respCh <- Response{ID: "msg_1", FinishReason: "end_turn", Usage: &TokenUsage{TotalTokens: 7}}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (streamedModel) Info() Info { return Info{Name: "streamed"} }

func TestCollect_StreamedFinal(t *testing.T) {
	resp, err := Collect(context.Background(), streamedModel{}, userRequest("x"))
	require.NoError(t, err)
	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, "Even trade.", resp.Text)
	assert.Equal(t, "end_turn", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}
