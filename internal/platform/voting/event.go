// Package voting delivers poll creation requests to the voting service,
// either directly over HTTP or as a "voting.create" event on a broker.
package voting

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"election-service/internal/domain/election"
)

const (
	RoutingKeyCreate = "voting.create"
	EventVersion     = 1
)

// Vote is the poll body understood by the voting service.
type Vote struct {
	MeetingID int64    `json:"meeting_id"`
	PollID    string   `json:"poll_id"`
	PollType  string   `json:"pollType"`
	Options   []string `json:"options"`
}

// CreateData is the payload of both the HTTP request and the broker event.
type CreateData struct {
	Vote Vote `json:"vote"`
}

// Envelope wraps every event published to the broker.
type Envelope struct {
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	EventID      string          `json:"event_id"`
	Timestamp    time.Time       `json:"timestamp"`
	Producer     string          `json:"producer"`
	Data         json.RawMessage `json:"data"`
}

func NewCreateData(req election.PollRequest) CreateData {
	options := req.Options
	if options == nil {
		options = []string{}
	}
	pollType := req.PollType
	if pollType == "" {
		pollType = election.PollTypeSingle
	}
	return CreateData{Vote: Vote{
		MeetingID: req.MeetingID,
		PollID:    req.PollID,
		PollType:  pollType,
		Options:   options,
	}}
}

func NewEnvelope(eventType, producer string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:    eventType,
		EventVersion: EventVersion,
		EventID:      uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Producer:     producer,
		Data:         raw,
	}, nil
}

// encodeCreateEvent builds the serialized voting.create envelope for req.
func encodeCreateEvent(producer string, req election.PollRequest) (Envelope, []byte, error) {
	env, err := NewEnvelope(RoutingKeyCreate, producer, NewCreateData(req))
	if err != nil {
		return Envelope{}, nil, err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, nil, err
	}
	return env, body, nil
}
