package election_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"election-service/internal/domain/election"
	"election-service/internal/repository/memory"
)

type fakePoller struct {
	mu    sync.Mutex
	calls []election.PollRequest
	delay time.Duration
	err   error
}

func (p *fakePoller) CreatePoll(ctx context.Context, req election.PollRequest) error {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	return p.err
}

func (p *fakePoller) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeResolver map[string]int64

func (r fakeResolver) ResolveMeetingCode(ctx context.Context, code string) (int64, error) {
	id, ok := r[code]
	if !ok {
		return 0, fmt.Errorf("%w: %s", election.ErrMeetingNotFound, code)
	}
	return id, nil
}

func newService(t *testing.T, poller election.PollCreator, opts ...election.Option) (*election.Service, *memory.ElectionRepo) {
	t.Helper()
	repo := memory.NewElectionRepo()
	opts = append([]election.Option{
		election.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		election.WithMeetingResolver(fakeResolver{"ABC123": 42}),
	}, opts...)
	return election.NewService(repo, poller, opts...), repo
}

func mustCreate(t *testing.T, svc *election.Service, meetingID int64, name string) *election.Position {
	t.Helper()
	p, err := svc.CreatePosition(context.Background(), election.CreatePositionInput{
		Meeting: election.MeetingRef{ID: meetingID},
		Name:    name,
	})
	if err != nil {
		t.Fatalf("create position: %v", err)
	}
	return p
}

func mustNominateAccepted(t *testing.T, svc *election.Service, positionID int64, usernames ...string) {
	t.Helper()
	ctx := context.Background()
	for _, u := range usernames {
		if _, err := svc.NominateCandidate(ctx, positionID, u); err != nil {
			t.Fatalf("nominate %s: %v", u, err)
		}
		if _, err := svc.AcceptNomination(ctx, positionID, u); err != nil {
			t.Fatalf("accept %s: %v", u, err)
		}
	}
}

func TestCreatePosition(t *testing.T) {
	svc, _ := newService(t, &fakePoller{})
	ctx := context.Background()

	agenda := " item-3 "
	p, err := svc.CreatePosition(ctx, election.CreatePositionInput{
		Meeting:      election.MeetingRef{ID: 5},
		Name:         "  President ",
		AgendaItemID: &agenda,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 || p.Name != "President" || !p.IsOpen || p.PollID != nil {
		t.Fatalf("unexpected position %+v", p)
	}
	if p.AgendaItemID == nil || *p.AgendaItemID != "item-3" {
		t.Fatalf("agenda item not normalized: %v", p.AgendaItemID)
	}

	byCode, err := svc.CreatePosition(ctx, election.CreatePositionInput{
		Meeting: election.MeetingRef{Code: "ABC123"},
		Name:    "Chair",
	})
	if err != nil {
		t.Fatalf("create by code: %v", err)
	}
	if byCode.MeetingID != 42 {
		t.Fatalf("expected meeting 42, got %d", byCode.MeetingID)
	}
}

func TestCreatePositionRejectsBadInput(t *testing.T) {
	svc, repo := newService(t, &fakePoller{})
	ctx := context.Background()

	tests := []struct {
		name string
		in   election.CreatePositionInput
		want error
	}{
		{"empty name", election.CreatePositionInput{Meeting: election.MeetingRef{ID: 1}, Name: "  "}, election.ErrValidation},
		{"no meeting", election.CreatePositionInput{Name: "Chair"}, election.ErrValidation},
		{"both refs", election.CreatePositionInput{Meeting: election.MeetingRef{ID: 1, Code: "ABC123"}, Name: "Chair"}, election.ErrValidation},
		{"negative id", election.CreatePositionInput{Meeting: election.MeetingRef{ID: -1}, Name: "Chair"}, election.ErrValidation},
		{"unknown code", election.CreatePositionInput{Meeting: election.MeetingRef{Code: "ZZZ"}, Name: "Chair"}, election.ErrMeetingNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreatePosition(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	all, _ := repo.ListPositions(ctx, election.PositionFilter{})
	if len(all) != 0 {
		t.Fatalf("rejected input must not persist, got %d positions", len(all))
	}
}

func TestCreatePositionWithoutResolver(t *testing.T) {
	repo := memory.NewElectionRepo()
	svc := election.NewService(repo, &fakePoller{}, election.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	_, err := svc.CreatePosition(context.Background(), election.CreatePositionInput{
		Meeting: election.MeetingRef{Code: "ABC123"},
		Name:    "Chair",
	})
	if !errors.Is(err, election.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestClosePositionCreatesPollWithAcceptedCandidatesInOrder(t *testing.T) {
	poller := &fakePoller{}
	svc, _ := newService(t, poller, election.WithPollIDGenerator(func() string { return "poll-fixed" }))
	ctx := context.Background()

	p := mustCreate(t, svc, 7, "Secretary")
	for _, u := range []string{"dave", "alice", "erin", "bob"} {
		if _, err := svc.NominateCandidate(ctx, p.ID, u); err != nil {
			t.Fatalf("nominate: %v", err)
		}
	}
	for _, u := range []string{"bob", "dave", "alice"} {
		if _, err := svc.AcceptNomination(ctx, p.ID, u); err != nil {
			t.Fatalf("accept: %v", err)
		}
	}

	closed, err := svc.ClosePosition(ctx, p.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	want := []string{"dave", "alice", "bob"}
	if len(closed.Candidates) != len(want) {
		t.Fatalf("unexpected candidates %v", closed.Candidates)
	}
	for i := range want {
		if closed.Candidates[i] != want[i] {
			t.Fatalf("candidate order mismatch: %v", closed.Candidates)
		}
	}
	if closed.IsOpen || closed.PollID == nil || *closed.PollID != "poll-fixed" {
		t.Fatalf("unexpected closed position %+v", closed.Position)
	}

	if poller.count() != 1 {
		t.Fatalf("expected one poll call, got %d", poller.count())
	}
	req := poller.calls[0]
	if req.MeetingID != 7 || req.PollID != "poll-fixed" || req.PollType != election.PollTypeSingle || req.PositionName != "Secretary" {
		t.Fatalf("unexpected poll request %+v", req)
	}

	stored, err := svc.GetPosition(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.IsOpen || stored.PollID == nil || *stored.PollID != "poll-fixed" {
		t.Fatalf("close not persisted: %+v", stored)
	}
}

func TestClosePositionErrors(t *testing.T) {
	poller := &fakePoller{}
	svc, _ := newService(t, poller)
	ctx := context.Background()

	if _, err := svc.ClosePosition(ctx, 404); !errors.Is(err, election.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}

	p := mustCreate(t, svc, 1, "Treasurer")
	mustNominateAccepted(t, svc, p.ID, "alice")
	if _, err := svc.NominateCandidate(ctx, p.ID, "bob"); err != nil {
		t.Fatalf("nominate: %v", err)
	}
	if _, err := svc.ClosePosition(ctx, p.ID); !errors.Is(err, election.ErrInsufficientCandidates) {
		t.Fatalf("expected ErrInsufficientCandidates, got %v", err)
	}
	if poller.count() != 0 {
		t.Fatalf("voting service must not be called with fewer than two candidates")
	}

	if _, err := svc.AcceptNomination(ctx, p.ID, "bob"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := svc.ClosePosition(ctx, p.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := svc.ClosePosition(ctx, p.ID); !errors.Is(err, election.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
	if poller.count() != 1 {
		t.Fatalf("expected exactly one poll call, got %d", poller.count())
	}
}

func TestPollFailureLeavesPositionUnchanged(t *testing.T) {
	poller := &fakePoller{err: errors.New("503 from voting")}
	svc, _ := newService(t, poller)
	ctx := context.Background()

	p := mustCreate(t, svc, 1, "Chair")
	mustNominateAccepted(t, svc, p.ID, "alice", "bob")

	if _, err := svc.ClosePosition(ctx, p.ID); !errors.Is(err, election.ErrPollCreationFailed) {
		t.Fatalf("expected ErrPollCreationFailed, got %v", err)
	}
	stored, _ := svc.GetPosition(ctx, p.ID)
	if !stored.IsOpen || stored.PollID != nil {
		t.Fatalf("failed close changed the position: %+v", stored)
	}

	// still nominatable, and a retry succeeds
	if _, err := svc.NominateCandidate(ctx, p.ID, "carol"); err != nil {
		t.Fatalf("nominate after failed close: %v", err)
	}
	poller.mu.Lock()
	poller.err = nil
	poller.mu.Unlock()
	if _, err := svc.ClosePosition(ctx, p.ID); err != nil {
		t.Fatalf("retry close: %v", err)
	}
}

// failingCloseRepo lets every transaction run normally except MarkClosed.
type failingCloseRepo struct {
	*memory.ElectionRepo
	err error
}

func (r *failingCloseRepo) WithTx(ctx context.Context, fn func(tx election.Tx) error) error {
	return r.ElectionRepo.WithTx(ctx, func(tx election.Tx) error {
		return fn(failingCloseTx{Tx: tx, err: r.err})
	})
}

type failingCloseTx struct {
	election.Tx
	err error
}

func (tx failingCloseTx) MarkClosed(ctx context.Context, id int64, pollID string) (*election.Position, error) {
	return nil, tx.err
}

func TestFailedUpdateAfterPollLogsPollID(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	base := memory.NewElectionRepo()
	setup := election.NewService(base, &fakePoller{}, election.WithLogger(logger))
	p := mustCreate(t, setup, 1, "President")
	mustNominateAccepted(t, setup, p.ID, "alice", "bob")

	poller := &fakePoller{}
	repo := &failingCloseRepo{ElectionRepo: base, err: fmt.Errorf("%w: connection reset", election.ErrStore)}
	svc := election.NewService(repo, poller, election.WithLogger(logger))

	if _, err := svc.ClosePosition(ctx, p.ID); !errors.Is(err, election.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if poller.count() != 1 {
		t.Fatalf("expected one poll call, got %d", poller.count())
	}

	pollID := poller.calls[0].PollID
	out := logs.String()
	if !strings.Contains(out, "poll created for position that was not closed") || !strings.Contains(out, pollID) {
		t.Fatalf("orphaned poll id %s not logged:\n%s", pollID, out)
	}

	got, err := base.GetPosition(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsOpen || got.PollID != nil {
		t.Fatalf("position must stay open, got %+v", got)
	}
}

func TestPollTimeoutIsPollCreationFailure(t *testing.T) {
	poller := &fakePoller{delay: time.Second}
	svc, _ := newService(t, poller, election.WithPollTimeout(20*time.Millisecond))
	ctx := context.Background()

	p := mustCreate(t, svc, 1, "Chair")
	mustNominateAccepted(t, svc, p.ID, "alice", "bob")

	if _, err := svc.ClosePosition(ctx, p.ID); !errors.Is(err, election.ErrPollCreationFailed) {
		t.Fatalf("expected ErrPollCreationFailed, got %v", err)
	}
	stored, _ := svc.GetPosition(ctx, p.ID)
	if !stored.IsOpen {
		t.Fatalf("timed out close must leave position open")
	}
}

func TestConcurrentClosesCreateOnePoll(t *testing.T) {
	poller := &fakePoller{delay: 30 * time.Millisecond}
	var outcomes sync.Map
	svc, _ := newService(t, poller, election.WithCloseObserver(func(outcome string, _ time.Duration) {
		v, _ := outcomes.LoadOrStore(outcome, new(int64))
		atomic.AddInt64(v.(*int64), 1)
	}))
	ctx := context.Background()

	p := mustCreate(t, svc, 1, "President")
	mustNominateAccepted(t, svc, p.ID, "alice", "bob")

	const workers = 8
	var (
		wg        sync.WaitGroup
		successes int64
		already   int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ClosePosition(ctx, p.ID)
			switch {
			case err == nil:
				atomic.AddInt64(&successes, 1)
			case errors.Is(err, election.ErrAlreadyClosed):
				atomic.AddInt64(&already, 1)
			default:
				t.Errorf("unexpected close error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || already != workers-1 {
		t.Fatalf("expected 1 success and %d already-closed, got %d/%d", workers-1, successes, already)
	}
	if poller.count() != 1 {
		t.Fatalf("expected exactly one poll call, got %d", poller.count())
	}
	if v, ok := outcomes.Load(election.OutcomeClosed); !ok || atomic.LoadInt64(v.(*int64)) != 1 {
		t.Fatalf("close observer did not see exactly one success")
	}
}

func TestNominateRacingCloseNeverLandsOnClosedPosition(t *testing.T) {
	poller := &fakePoller{delay: 20 * time.Millisecond}
	svc, repo := newService(t, poller)
	ctx := context.Background()

	p := mustCreate(t, svc, 1, "President")
	mustNominateAccepted(t, svc, p.ID, "alice", "bob")

	var wg sync.WaitGroup
	wg.Add(2)
	var nominateErr error
	go func() {
		defer wg.Done()
		_, _ = svc.ClosePosition(ctx, p.ID)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		_, nominateErr = svc.NominateCandidate(ctx, p.ID, "carol")
	}()
	wg.Wait()

	noms, _ := repo.ListNominations(ctx, p.ID)
	carolStored := false
	for _, n := range noms {
		if n.Username == "carol" {
			carolStored = true
		}
	}
	if nominateErr == nil && !carolStored {
		t.Fatalf("nomination reported success but was not stored")
	}
	if nominateErr != nil && !errors.Is(nominateErr, election.ErrPositionClosed) {
		t.Fatalf("expected ErrPositionClosed, got %v", nominateErr)
	}

	// whichever order won, a successful close used exactly the two accepted candidates
	if poller.count() == 1 && len(poller.calls[0].Options) != 2 {
		t.Fatalf("unexpected poll options %v", poller.calls[0].Options)
	}
}

func TestNominationLifecycle(t *testing.T) {
	svc, _ := newService(t, &fakePoller{})
	ctx := context.Background()
	p := mustCreate(t, svc, 1, "President")

	n, err := svc.NominateCandidate(ctx, p.ID, " alice ")
	if err != nil {
		t.Fatalf("nominate: %v", err)
	}
	if n.Username != "alice" || n.Accepted {
		t.Fatalf("unexpected nomination %+v", n)
	}

	if _, err := svc.NominateCandidate(ctx, p.ID, "alice"); !errors.Is(err, election.ErrDuplicateNomination) {
		t.Fatalf("expected ErrDuplicateNomination, got %v", err)
	}
	if _, err := svc.NominateCandidate(ctx, p.ID, ""); !errors.Is(err, election.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.NominateCandidate(ctx, 999, "bob"); !errors.Is(err, election.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}

	status, _ := svc.GetNominationStatus(ctx, p.ID, "alice")
	if len(status) != 1 || status[0].Accepted {
		t.Fatalf("unexpected status %+v", status)
	}

	first, err := svc.AcceptNomination(ctx, p.ID, "alice")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	second, err := svc.AcceptNomination(ctx, p.ID, "alice")
	if err != nil {
		t.Fatalf("accept twice: %v", err)
	}
	if !first.Accepted || !second.Accepted {
		t.Fatalf("accept should be idempotent: %+v %+v", first, second)
	}

	if _, err := svc.AcceptNomination(ctx, p.ID, "ghost"); !errors.Is(err, election.ErrNominationNotFound) {
		t.Fatalf("expected ErrNominationNotFound, got %v", err)
	}

	none, err := svc.GetNominationStatus(ctx, p.ID, "ghost")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty status, got %v %v", none, err)
	}
}

func TestListPositionsOpenFilter(t *testing.T) {
	svc, _ := newService(t, &fakePoller{})
	ctx := context.Background()

	a := mustCreate(t, svc, 1, "President")
	mustCreate(t, svc, 1, "Chair")
	mustNominateAccepted(t, svc, a.ID, "alice", "bob")
	if _, err := svc.ClosePosition(ctx, a.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	open := true
	got, err := svc.ListPositions(ctx, election.PositionFilter{IsOpen: &open})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Chair" {
		t.Fatalf("unexpected open positions %+v", got)
	}

	all, _ := svc.ListPositions(ctx, election.PositionFilter{})
	if len(all) != 2 || all[0].ID >= all[1].ID {
		t.Fatalf("expected two positions ordered by id, got %+v", all)
	}
}
