package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/commonpool/core"
)

func TestKeywordResolver(t *testing.T) {
	r := NewKeywordResolver()

	tests := []struct {
		reply string
		want  core.Outcome
	}{
		{"ACCEPT. I need books.", core.OutcomeSuccess},
		{"Yes, happy to trade.", core.OutcomeSuccess},
		{"I cannot accept this offer.", core.OutcomeFailed},
		{"REJECT: too expensive", core.OutcomeFailed},
		{"That is unacceptable.", core.OutcomeFailed},
		{"COUNTER: 2 books instead", core.OutcomeFailed},
		{"No deal.", core.OutcomeFailed},
		{"I disagree with these terms.", core.OutcomeFailed},
		{"This is not ideal for me, so no.", core.OutcomePending},
		{"I will not agree to this.", core.OutcomeFailed},
		{"I won\u2019t accept that.", core.OutcomeFailed},
		{"Agreed, happy to trade.", core.OutcomeSuccess},
		{"Hmm, let me think.", core.OutcomePending},
		{"", core.OutcomePending},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			d, err := r.Resolve(context.Background(), core.ExchangeRecord{Conversation: []string{tt.reply}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Outcome)
		})
	}
}

func TestKeywordResolver_EmptyConversation(t *testing.T) {
	d, err := NewKeywordResolver().Resolve(context.Background(), core.ExchangeRecord{})
	require.NoError(t, err)
	assert.Equal(t, core.OutcomePending, d.Outcome)
}
