package election

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultPollTimeout = 5 * time.Second

// Close outcomes reported to the close observer.
const (
	OutcomeClosed                 = "closed"
	OutcomeNotFound               = "not_found"
	OutcomeAlreadyClosed          = "already_closed"
	OutcomeInsufficientCandidates = "insufficient_candidates"
	OutcomePollFailed             = "poll_failed"
	OutcomeError                  = "error"
)

type Service struct {
	repo        Repository
	polls       PollCreator
	meetings    MeetingResolver
	logger      *slog.Logger
	pollTimeout time.Duration
	newPollID   func() string
	onClose     func(outcome string, elapsed time.Duration)
}

type Option func(*Service)

func WithMeetingResolver(m MeetingResolver) Option {
	return func(s *Service) { s.meetings = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPollTimeout bounds each call to the voting collaborator.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

func WithPollIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newPollID = fn
		}
	}
}

// WithCloseObserver registers a callback invoked once per ClosePosition call.
func WithCloseObserver(fn func(outcome string, elapsed time.Duration)) Option {
	return func(s *Service) { s.onClose = fn }
}

func NewService(repo Repository, polls PollCreator, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		polls:       polls,
		logger:      slog.Default(),
		pollTimeout: defaultPollTimeout,
		newPollID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "election")
	return s
}

func (s *Service) CreatePosition(ctx context.Context, in CreatePositionInput) (*Position, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: position_name is required", ErrValidation)
	}

	code := strings.TrimSpace(in.Meeting.Code)
	switch {
	case in.Meeting.ID != 0 && code != "":
		return nil, fmt.Errorf("%w: provide either meeting_id or meeting_code, not both", ErrValidation)
	case in.Meeting.ID == 0 && code == "":
		return nil, fmt.Errorf("%w: meeting_id or meeting_code is required", ErrValidation)
	case in.Meeting.ID < 0:
		return nil, fmt.Errorf("%w: meeting_id must be positive", ErrValidation)
	}

	meetingID := in.Meeting.ID
	if code != "" {
		id, err := s.resolveMeeting(ctx, code)
		if err != nil {
			return nil, err
		}
		meetingID = id
	}

	p := &Position{
		MeetingID:    meetingID,
		AgendaItemID: normalizeOptional(in.AgendaItemID),
		Name:         name,
	}
	if err := s.repo.CreatePosition(ctx, p); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "position created",
		"position_id", p.ID,
		"meeting_id", p.MeetingID,
		"position_name", p.Name,
	)
	return p, nil
}

func (s *Service) resolveMeeting(ctx context.Context, code string) (int64, error) {
	if s.meetings == nil {
		return 0, fmt.Errorf("%w: meeting lookup is not configured", ErrUpstreamUnavailable)
	}
	id, err := s.meetings.ResolveMeetingCode(ctx, code)
	if err != nil {
		s.logger.WarnContext(ctx, "meeting code lookup failed", "meeting_code", code, "error", err)
		if errors.Is(err, ErrMeetingNotFound) || errors.Is(err, ErrUpstreamUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: code %q", ErrMeetingNotFound, code)
	}
	return id, nil
}

func (s *Service) ListPositions(ctx context.Context, f PositionFilter) ([]Position, error) {
	return s.repo.ListPositions(ctx, f)
}

func (s *Service) GetPosition(ctx context.Context, id int64) (*Position, error) {
	return s.repo.GetPosition(ctx, id)
}

// ClosePosition turns an open position into a poll. The position row stays
// locked while the voting collaborator is called, so concurrent closes of the
// same position serialize and at most one poll is requested. If the poll
// cannot be created nothing is written and the position stays open.
func (s *Service) ClosePosition(ctx context.Context, id int64) (*ClosedPosition, error) {
	start := time.Now()
	var (
		closed      *ClosedPosition
		pollID      string
		pollCreated bool
	)

	err := s.repo.WithTx(ctx, func(tx Tx) error {
		p, err := tx.LockPosition(ctx, id)
		if err != nil {
			return err
		}
		if !p.IsOpen {
			return ErrAlreadyClosed
		}

		accepted, err := tx.AcceptedNominations(ctx, id)
		if err != nil {
			return err
		}
		if len(accepted) < MinCandidates {
			return fmt.Errorf("%w: have %d, need at least %d", ErrInsufficientCandidates, len(accepted), MinCandidates)
		}

		candidates := make([]string, 0, len(accepted))
		for _, n := range accepted {
			candidates = append(candidates, n.Username)
		}

		pollID = s.newPollID()
		if err := s.createPoll(ctx, PollRequest{
			MeetingID:    p.MeetingID,
			PollID:       pollID,
			PollType:     PollTypeSingle,
			Options:      candidates,
			PositionName: p.Name,
		}); err != nil {
			return err
		}
		pollCreated = true

		updated, err := tx.MarkClosed(ctx, id, pollID)
		if err != nil {
			return err
		}
		closed = &ClosedPosition{Position: *updated, Candidates: candidates}
		return nil
	})

	outcome := closeOutcome(err)
	if s.onClose != nil {
		s.onClose(outcome, time.Since(start))
	}
	if err != nil {
		if outcome == OutcomePollFailed || outcome == OutcomeError {
			s.logger.ErrorContext(ctx, "close position failed", "position_id", id, "outcome", outcome, "error", err)
		}
		if pollCreated {
			// the voting service has a poll the store does not know about
			s.logger.ErrorContext(ctx, "poll created for position that was not closed",
				"position_id", id, "poll_id", pollID, "error", err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "position closed",
		"position_id", id,
		"poll_id", *closed.PollID,
		"candidates", len(closed.Candidates),
	)
	return closed, nil
}

func (s *Service) createPoll(ctx context.Context, req PollRequest) error {
	if s.polls == nil {
		return fmt.Errorf("%w: no voting transport configured", ErrPollCreationFailed)
	}
	ctx, cancel := context.WithTimeout(ctx, s.pollTimeout)
	defer cancel()

	if err := s.polls.CreatePoll(ctx, req); err != nil {
		return fmt.Errorf("%w: %w", ErrPollCreationFailed, err)
	}
	return nil
}

func closeOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeClosed
	case errors.Is(err, ErrPositionNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrAlreadyClosed):
		return OutcomeAlreadyClosed
	case errors.Is(err, ErrInsufficientCandidates):
		return OutcomeInsufficientCandidates
	case errors.Is(err, ErrPollCreationFailed):
		return OutcomePollFailed
	default:
		return OutcomeError
	}
}

func (s *Service) NominateCandidate(ctx context.Context, positionID int64, username string) (*Nomination, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}

	n := &Nomination{PositionID: positionID, Username: username}
	err := s.repo.WithTx(ctx, func(tx Tx) error {
		p, err := tx.LockPosition(ctx, positionID)
		if err != nil {
			return err
		}
		if !p.IsOpen {
			return ErrPositionClosed
		}
		return tx.InsertNomination(ctx, n)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "candidate nominated", "position_id", positionID, "username", username)
	return n, nil
}

func (s *Service) ListNominations(ctx context.Context, positionID int64) ([]Nomination, error) {
	return s.repo.ListNominations(ctx, positionID)
}

// GetNominationStatus returns the nominations matching the pair: zero or one.
func (s *Service) GetNominationStatus(ctx context.Context, positionID int64, username string) ([]Nomination, error) {
	return s.repo.FindNominations(ctx, positionID, username)
}

// AcceptNomination is idempotent: accepting twice returns the same record.
func (s *Service) AcceptNomination(ctx context.Context, positionID int64, username string) (*Nomination, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	n, err := s.repo.AcceptNomination(ctx, positionID, username)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "nomination accepted", "position_id", positionID, "username", username)
	return n, nil
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
