package election

import (
	"context"
	"time"
)

// PollTypeSingle is the only poll type this service creates: one choice per voter.
const PollTypeSingle = "single"

// MinCandidates is the number of accepted nominations a position needs before
// it can be closed into a poll.
const MinCandidates = 2

type Position struct {
	ID           int64     `json:"position_id"`
	MeetingID    int64     `json:"meeting_id"`
	AgendaItemID *string   `json:"agenda_item_id"`
	Name         string    `json:"position_name"`
	IsOpen       bool      `json:"is_open"`
	PollID       *string   `json:"poll_id"`
	CreatedAt    time.Time `json:"created_at"`
}

type Nomination struct {
	PositionID  int64     `json:"position_id"`
	Username    string    `json:"username"`
	Accepted    bool      `json:"accepted"`
	NominatedAt time.Time `json:"nominated_at"`
}

// ClosedPosition is the result of a successful close: the updated position
// and the candidates that became the poll options, in poll option order.
type ClosedPosition struct {
	Position
	Candidates []string `json:"candidates"`
}

// MeetingRef identifies the owning meeting either directly by ID or by the
// human-entered meeting code. Exactly one of the two must be set.
type MeetingRef struct {
	ID   int64
	Code string
}

type CreatePositionInput struct {
	Meeting      MeetingRef
	Name         string
	AgendaItemID *string
}

// PositionFilter narrows ListPositions. Nil fields do not filter.
type PositionFilter struct {
	MeetingID    *int64
	AgendaItemID *string
	IsOpen       *bool
}

// PollRequest is what the voting collaborator receives when a position closes.
type PollRequest struct {
	MeetingID    int64
	PollID       string
	PollType     string
	Options      []string
	PositionName string
}

// PollCreator submits a poll creation request to the voting collaborator and
// reports success only once the collaborator (or its broker) acknowledged it.
type PollCreator interface {
	CreatePoll(ctx context.Context, req PollRequest) error
}

// MeetingResolver turns a meeting code into a meeting id. Implementations
// return errors wrapping ErrMeetingNotFound or ErrUpstreamUnavailable.
type MeetingResolver interface {
	ResolveMeetingCode(ctx context.Context, code string) (int64, error)
}

type Repository interface {
	CreatePosition(ctx context.Context, p *Position) error
	GetPosition(ctx context.Context, id int64) (*Position, error)
	ListPositions(ctx context.Context, f PositionFilter) ([]Position, error)
	ListNominations(ctx context.Context, positionID int64) ([]Nomination, error)
	FindNominations(ctx context.Context, positionID int64, username string) ([]Nomination, error)
	AcceptNomination(ctx context.Context, positionID int64, username string) (*Nomination, error)
	// WithTx runs fn in one transaction. A nil return commits, anything else
	// rolls back every write made through tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Tx is the transactional view of the store used by the close and nominate
// workflows. LockPosition holds the position row until the transaction ends.
type Tx interface {
	LockPosition(ctx context.Context, id int64) (*Position, error)
	AcceptedNominations(ctx context.Context, positionID int64) ([]Nomination, error)
	InsertNomination(ctx context.Context, n *Nomination) error
	MarkClosed(ctx context.Context, id int64, pollID string) (*Position, error)
}
