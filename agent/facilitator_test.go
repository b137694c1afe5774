package agent_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/commonpool/agent"
	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/internal/testutil"
)

func TestFacilitator_RecentWindow(t *testing.T) {
	sc := testutil.NewScriptedCapability("balanced")
	f := agent.NewFacilitator(sc)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		// timestamps deliberately run backwards; append order wins
		f.Record(testutil.NewExchange(base.Add(-time.Duration(i)*time.Minute), fmt.Sprintf("P%d", i), "Q", core.ResourceBooks, core.ResourceTools))
	}

	reply, err := f.SuggestValuation(context.Background(), core.TradeOffer{}, core.StateSnapshot{Name: "A"}, core.StateSnapshot{Name: "B"})
	require.NoError(t, err)
	assert.Equal(t, "balanced", reply)

	prompts := sc.Prompts()
	require.Len(t, prompts, 1)
	recent, ok := prompts[0].Data["recent_exchanges"].([]core.ExchangeRecord)
	require.True(t, ok)
	require.Len(t, recent, agent.RecentWindow)
	for i, ex := range recent {
		assert.Equal(t, fmt.Sprintf("P%d", i+3), ex.Initiator)
	}

	assert.Equal(t, core.StateSnapshot{Name: "A"}, prompts[0].Data["initiator_state"])
	assert.Equal(t, core.StateSnapshot{Name: "B"}, prompts[0].Data["responder_state"])
	assert.Len(t, f.History(), 8)
}

func TestFacilitator_EmptyHistory(t *testing.T) {
	sc := testutil.NewScriptedCapability("ok")
	f := agent.NewFacilitator(sc)

	_, err := f.SuggestValuation(context.Background(), core.TradeOffer{}, core.StateSnapshot{}, core.StateSnapshot{})
	require.NoError(t, err)

	recent := sc.Prompts()[0].Data["recent_exchanges"].([]core.ExchangeRecord)
	assert.NotNil(t, recent)
	assert.Empty(t, recent)
}

func TestFacilitator_SuggestValuationWithTruncates(t *testing.T) {
	sc := testutil.NewScriptedCapability("ok")
	f := agent.NewFacilitator(sc, func(o *agent.FacilitatorOptions) { o.Window = 2 })

	recent := []core.ExchangeRecord{{Initiator: "a"}, {Initiator: "b"}, {Initiator: "c"}}
	_, err := f.SuggestValuationWith(context.Background(), core.TradeOffer{}, core.StateSnapshot{}, core.StateSnapshot{}, recent)
	require.NoError(t, err)

	got := sc.Prompts()[0].Data["recent_exchanges"].([]core.ExchangeRecord)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Initiator)
	assert.Equal(t, "c", got[1].Initiator)
}

func TestFacilitator_RecentIsCopy(t *testing.T) {
	f := agent.NewFacilitator(nil)
	ex := testutil.NewExchange(time.Now(), "A", "B", core.ResourceBooks, core.ResourceTools)
	f.Record(ex)

	recent := f.Recent(5)
	recent[0].Conversation[0] = "changed"
	assert.Equal(t, "ok", ex.Conversation[0])
}

func TestFacilitator_Failure(t *testing.T) {
	sc := testutil.NewScriptedCapability("").On("facilitator", "", &core.CapabilityError{Op: "respond", Err: context.DeadlineExceeded})
	f := agent.NewFacilitator(sc)

	_, err := f.SuggestValuation(context.Background(), core.TradeOffer{}, core.StateSnapshot{}, core.StateSnapshot{})
	var ce *core.CapabilityError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "facilitator", ce.Op)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFacilitator_Notes(t *testing.T) {
	f := agent.NewFacilitator(nil)
	f.AddNote("P1", "drives a hard bargain")
	assert.Equal(t, []string{"drives a hard bargain"}, f.Notes("P1"))
	assert.Empty(t, f.Notes("P2"))
}
