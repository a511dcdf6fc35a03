package domain

import (
	"errors"
	"time"
)

// ErrMalformedEvent marks a call event missing a required field. Malformed
// events are skipped during aggregation, never fatal to a query.
var ErrMalformedEvent = errors.New("malformed call event")

// CallEvent is one promotional call: an actor mentioning a contract in a
// channel at a point in time, with the market state observed at call time
// embedded. Events are immutable facts owned by the ingestion pipeline.
type CallEvent struct {
	ContractAddress string          `json:"contractAddress"`
	Actor           string          `json:"actor"`
	Channel         string          `json:"channel,omitempty"`
	Message         string          `json:"message,omitempty"`
	OccurredAt      time.Time       `json:"occurredAt"`
	Baseline        *MarketSnapshot `json:"baseline,omitempty"`
}

// Validate checks the required fields. Channel, message, and baseline are
// optional.
func (e CallEvent) Validate() error {
	if e.ContractAddress == "" || e.Actor == "" || e.OccurredAt.IsZero() {
		return ErrMalformedEvent
	}
	return nil
}
