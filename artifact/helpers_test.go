package artifact

import (
	"time"

	"github.com/hupe1980/commonpool/core"
)

func sampleRecord(id string, start time.Time) *core.SimulationRecord {
	rec := core.NewSimulationRecord(id, start)
	alice := core.StateSnapshot{
		Name:        "Alice",
		Personality: "generous",
		Resources:   map[core.Resource]int{core.ResourceBooks: 2},
		Needs:       []core.Resource{core.ResourceTools},
	}
	bob := core.StateSnapshot{
		Name:        "Bob",
		Personality: "cautious",
		Resources:   map[core.Resource]int{core.ResourceTools: 1},
		Needs:       []core.Resource{core.ResourceBooks},
	}
	rec.InitialStates["Alice"] = alice
	rec.InitialStates["Bob"] = bob

	rec.Exchanges = append(rec.Exchanges, &core.ExchangeRecord{
		Timestamp: start.Add(time.Second),
		Initiator: "Alice",
		Responder: "Bob",
		Offer: core.NewTradeOffer(
			map[core.Resource]int{core.ResourceBooks: 1},
			map[core.Resource]int{core.ResourceTools: 1},
			"Would you be interested in trading 1 books for 1 tools?",
		),
		FacilitatorNotes: "fair",
		Conversation:     []string{"ACCEPT"},
		Outcome:          core.OutcomePending,
	})

	end := start.Add(time.Minute)
	rec.EndTime = &end
	alice.ExchangeCount, bob.ExchangeCount = 1, 1
	rec.FinalStates["Alice"] = alice.Clone()
	rec.FinalStates["Bob"] = bob.Clone()
	rec.Summary = "One pending trade."
	return rec
}
