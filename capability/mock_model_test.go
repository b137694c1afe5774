package capability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/model"
)

// MockModelImpl for testing request rendering and usage accounting
type MockModelImpl struct{ mock.Mock }

func (m *MockModelImpl) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	args := m.Called(ctx, req)

	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)
	if resp, ok := args.Get(0).(model.Response); ok {
		respCh <- resp
	}
	if err := args.Error(1); err != nil {
		errCh <- err
	}
	close(respCh)
	close(errCh)
	return respCh, errCh
}

func (m *MockModelImpl) Info() model.Info {
	args := m.Called()
	return args.Get(0).(model.Info)
}

func TestModelCapability_RequestShape(t *testing.T) {
	m := &MockModelImpl{}
	m.On("Info").Return(model.Info{Name: "stub", Provider: "mock"})
	m.On("Generate", mock.Anything, mock.MatchedBy(func(req model.Request) bool {
		return req.Instructions == "You are a neutral facilitator" &&
			len(req.Messages) == 1 &&
			req.Messages[0].Role == "user" &&
			!req.Stream
	})).Return(model.Response{
		Text:  "Even trade.",
		Usage: &model.TokenUsage{PromptTokens: 10, CompletionTokens: 3, TotalTokens: 13},
	}, nil).Once()

	c := New(m)
	out, err := c.Respond(context.Background(), core.Prompt{
		Instructions: "You are a neutral facilitator",
		Data:         map[string]any{"recent_exchanges": []any{}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Even trade.", out)
	m.AssertExpectations(t)
}

func TestModelCapability_ModelErrorIsWrapped(t *testing.T) {
	m := &MockModelImpl{}
	m.On("Info").Return(model.Info{Name: "stub", Provider: "mock"})
	m.On("Generate", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	c := New(m)
	_, err := c.Respond(context.Background(), core.Prompt{Instructions: "x"})

	var ce *core.CapabilityError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "respond", ce.Op)
	m.AssertCalled(t, "Info")
}
