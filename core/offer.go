package core

import "encoding/json"

// TradeOffer describes a proposed exchange of goods. It is immutable once
// constructed: the constructor copies its inputs and every accessor returns
// a copy.
type TradeOffer struct {
	offered   map[Resource]int
	requested map[Resource]int
	message   string
}

// NewTradeOffer builds an offer of offered items in return for requested items.
func NewTradeOffer(offered, requested map[Resource]int, message string) TradeOffer {
	return TradeOffer{
		offered:   copyItems(offered),
		requested: copyItems(requested),
		message:   message,
	}
}

// Offered returns a copy of the items the initiator gives.
func (o TradeOffer) Offered() map[Resource]int { return copyItems(o.offered) }

// Requested returns a copy of the items the initiator asks for.
func (o TradeOffer) Requested() map[Resource]int { return copyItems(o.requested) }

// Message returns the free-text pitch attached to the offer.
func (o TradeOffer) Message() string { return o.message }

type offerJSON struct {
	OfferedItems   map[Resource]int `json:"offered_items"`
	RequestedItems map[Resource]int `json:"requested_items"`
	Message        string           `json:"message"`
}

// MarshalJSON implements json.Marshaler.
func (o TradeOffer) MarshalJSON() ([]byte, error) {
	return json.Marshal(offerJSON{
		OfferedItems:   copyItems(o.offered),
		RequestedItems: copyItems(o.requested),
		Message:        o.message,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *TradeOffer) UnmarshalJSON(b []byte) error {
	var raw offerJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*o = NewTradeOffer(raw.OfferedItems, raw.RequestedItems, raw.Message)
	return nil
}
