package testutil

import (
	"sync"
	"time"

	"github.com/hupe1980/commonpool/core"
)

// NewExchange builds a pending exchange record between two participants
// trading one unit of give for one unit of want.
func NewExchange(ts time.Time, initiator, responder string, give, want core.Resource) *core.ExchangeRecord {
	return &core.ExchangeRecord{
		Timestamp: ts,
		Initiator: initiator,
		Responder: responder,
		Offer: core.NewTradeOffer(
			map[core.Resource]int{give: 1},
			map[core.Resource]int{want: 1},
			"",
		),
		Conversation: []string{"ok"},
		Outcome:      core.OutcomePending,
	}
}

// FixedClock returns a clock that advances by step on every call.
func FixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}
