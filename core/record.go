package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Outcome is the resolution state of an exchange.
type Outcome string

const (
	// OutcomePending is the state every exchange is created in.
	OutcomePending Outcome = "pending"
	// OutcomeSuccess marks an accepted exchange.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailed marks a rejected exchange or one whose capability calls failed.
	OutcomeFailed Outcome = "failed"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomePending, OutcomeSuccess, OutcomeFailed:
		return true
	}
	return false
}

// ExchangeRecord is the log of one negotiation attempt. A single record is
// shared (by pointer) between the orchestrator's history, the facilitator's
// history, both participants' histories and the simulation record. Only the
// orchestrator transitions Outcome and FinalTerms, once, under its lock.
type ExchangeRecord struct {
	Timestamp        time.Time        `json:"timestamp"`
	Initiator        string           `json:"initiator"`
	Responder        string           `json:"responder"`
	Offer            TradeOffer       `json:"offer"`
	FacilitatorNotes string           `json:"facilitator_notes"`
	Conversation     []string         `json:"conversation"`
	Outcome          Outcome          `json:"outcome"`
	FinalTerms       map[Resource]int `json:"final_terms"`
}

// Clone returns a deep copy suitable for handing to code outside the orchestrator lock.
func (r *ExchangeRecord) Clone() ExchangeRecord {
	c := *r
	c.Conversation = append([]string{}, r.Conversation...)
	if r.FinalTerms != nil {
		c.FinalTerms = copyItems(r.FinalTerms)
	}
	return c
}

// StateSnapshot is a defensive point-in-time copy of a participant.
type StateSnapshot struct {
	Name          string           `json:"name"`
	Personality   string           `json:"personality"`
	Resources     map[Resource]int `json:"resources"`
	Needs         []Resource       `json:"needs"`
	ExchangeCount int              `json:"exchange_count"`
}

// Clone returns a deep copy.
func (s StateSnapshot) Clone() StateSnapshot {
	s.Resources = copyItems(s.Resources)
	s.Needs = append([]Resource{}, s.Needs...)
	return s
}

// SimulationRecord is the lifecycle ledger of one run.
type SimulationRecord struct {
	SimulationID  string                   `json:"simulation_id"`
	StartTime     time.Time                `json:"start_time"`
	EndTime       *time.Time               `json:"end_time"`
	InitialStates map[string]StateSnapshot `json:"initial_states"`
	Exchanges     []*ExchangeRecord        `json:"exchanges"`
	FinalStates   map[string]StateSnapshot `json:"final_states"`
	Summary       string                   `json:"summary"`
}

// NewSimulationRecord returns an empty record started at start.
func NewSimulationRecord(id string, start time.Time) *SimulationRecord {
	return &SimulationRecord{
		SimulationID:  id,
		StartTime:     start,
		InitialStates: map[string]StateSnapshot{},
		Exchanges:     []*ExchangeRecord{},
		FinalStates:   map[string]StateSnapshot{},
	}
}

// Clone deep-copies the record, including every exchange.
func (r *SimulationRecord) Clone() *SimulationRecord {
	c := NewSimulationRecord(r.SimulationID, r.StartTime)
	if r.EndTime != nil {
		end := *r.EndTime
		c.EndTime = &end
	}
	for k, v := range r.InitialStates {
		c.InitialStates[k] = v.Clone()
	}
	for k, v := range r.FinalStates {
		c.FinalStates[k] = v.Clone()
	}
	for _, ex := range r.Exchanges {
		cp := ex.Clone()
		c.Exchanges = append(c.Exchanges, &cp)
	}
	c.Summary = r.Summary
	return c
}

// Participants returns the participant names from the initial states.
func (r *SimulationRecord) Participants() []string {
	names := make([]string, 0, len(r.InitialStates))
	for name := range r.InitialStates {
		names = append(names, name)
	}
	return sortedStrings(names)
}

// ValidateSimulationID rejects identifiers that cannot be embedded in a
// filename. The rules match the ones readers apply to record filenames.
func ValidateSimulationID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSimulationID)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSimulationID, id)
	}
	return nil
}

// FilenameTimeLayout formats start times in persisted filenames (YYYYMMDD_HHMMSS).
const FilenameTimeLayout = "20060102_150405"

// RecordFilename derives the persisted filename from the id and start time.
func RecordFilename(r *SimulationRecord) string {
	return fmt.Sprintf("sim_%s_%s.json", r.SimulationID, r.StartTime.Format(FilenameTimeLayout))
}

// ParseSimulationRecord reconstructs a record from its persisted document.
func ParseSimulationRecord(data []byte) (*SimulationRecord, error) {
	var r SimulationRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse simulation record: %w", err)
	}
	if r.InitialStates == nil {
		r.InitialStates = map[string]StateSnapshot{}
	}
	if r.FinalStates == nil {
		r.FinalStates = map[string]StateSnapshot{}
	}
	if r.Exchanges == nil {
		r.Exchanges = []*ExchangeRecord{}
	}
	for i, ex := range r.Exchanges {
		if ex == nil {
			return nil, fmt.Errorf("parse simulation record: exchange %d is null", i)
		}
		if !ex.Outcome.Valid() {
			return nil, fmt.Errorf("parse simulation record: exchange %d has outcome %q", i, ex.Outcome)
		}
		if ex.Conversation == nil {
			ex.Conversation = []string{}
		}
	}
	return &r, nil
}

// RecordSummary is one row of the log viewer's listing.
type RecordSummary struct {
	ID             string    `json:"id"`
	StartTime      time.Time `json:"start_time"`
	Participants   []string  `json:"participants"`
	ExchangesCount int       `json:"exchanges_count"`
	Filename       string    `json:"filename"`
}

// Summarize builds the listing row for a record stored under filename.
func Summarize(r *SimulationRecord, filename string) RecordSummary {
	return RecordSummary{
		ID:             r.SimulationID,
		StartTime:      r.StartTime,
		Participants:   r.Participants(),
		ExchangesCount: len(r.Exchanges),
		Filename:       filename,
	}
}
