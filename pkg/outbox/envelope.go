package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

// EnvelopeVersion is bumped when the envelope shape changes incompatibly.
const EnvelopeVersion = 1

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is what subscribers receive as the message body. It repeats
// the routing keys so a consumer never depends on message attributes.
type PayloadEnvelope struct {
	Version       int                       `json:"version"`
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type,omitempty"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type,omitempty"`
	AggregateID   uuid.UUID                 `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *ActorRef                 `json:"actor,omitempty"`
	Data          json.RawMessage           `json:"data"`
}

var errMissingEventID = errors.New("envelope has no event_id")

// DecodeEnvelope parses a stored outbox payload and rejects envelopes a
// subscriber could not deduplicate.
func DecodeEnvelope(raw json.RawMessage) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, err
	}
	if env.EventID == "" {
		return PayloadEnvelope{}, errMissingEventID
	}
	if env.Version < 1 || env.Version > EnvelopeVersion {
		return PayloadEnvelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	return env, nil
}
