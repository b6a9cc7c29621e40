// Package memory is an in-process implementation of election.Repository.
// It follows the same locking and rollback rules as the Postgres store and
// is used for tests and for running the service without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"election-service/internal/domain/election"
)

type ElectionRepo struct {
	mu          sync.Mutex
	positions   map[int64]*election.Position
	nominations []election.Nomination // insertion order is nomination order
	rowLocks    map[int64]*sync.Mutex
	nextID      int64
	now         func() time.Time
}

func NewElectionRepo() *ElectionRepo {
	return &ElectionRepo{
		positions: make(map[int64]*election.Position),
		rowLocks:  make(map[int64]*sync.Mutex),
		nextID:    1,
		now:       time.Now,
	}
}

func (r *ElectionRepo) CreatePosition(ctx context.Context, p *election.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = r.nextID
	r.nextID++
	p.IsOpen = true
	p.PollID = nil
	p.CreatedAt = r.now().UTC()

	stored := *p
	r.positions[p.ID] = &stored
	return nil
}

func (r *ElectionRepo) GetPosition(ctx context.Context, id int64) (*election.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.positions[id]
	if !ok {
		return nil, election.ErrPositionNotFound
	}
	copyPos := *p
	return &copyPos, nil
}

func (r *ElectionRepo) ListPositions(ctx context.Context, f election.PositionFilter) ([]election.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.positions))
	for id := range r.positions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	res := make([]election.Position, 0, len(ids))
	for _, id := range ids {
		p := r.positions[id]
		if f.MeetingID != nil && p.MeetingID != *f.MeetingID {
			continue
		}
		if f.AgendaItemID != nil && (p.AgendaItemID == nil || *p.AgendaItemID != *f.AgendaItemID) {
			continue
		}
		if f.IsOpen != nil && p.IsOpen != *f.IsOpen {
			continue
		}
		res = append(res, *p)
	}
	return res, nil
}

func (r *ElectionRepo) ListNominations(ctx context.Context, positionID int64) ([]election.Nomination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []election.Nomination{}
	for _, n := range r.nominations {
		if n.PositionID == positionID {
			res = append(res, n)
		}
	}
	return res, nil
}

func (r *ElectionRepo) FindNominations(ctx context.Context, positionID int64, username string) ([]election.Nomination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []election.Nomination{}
	for _, n := range r.nominations {
		if n.PositionID == positionID && n.Username == username {
			res = append(res, n)
		}
	}
	return res, nil
}

func (r *ElectionRepo) AcceptNomination(ctx context.Context, positionID int64, username string) (*election.Nomination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.nominations {
		n := &r.nominations[i]
		if n.PositionID == positionID && n.Username == username {
			n.Accepted = true
			copyNom := *n
			return &copyNom, nil
		}
	}
	return nil, election.ErrNominationNotFound
}

func (r *ElectionRepo) Ping(ctx context.Context) error {
	return nil
}

// WithTx stages writes in a memTx and applies them only when fn succeeds.
// Position locks taken by the transaction are released after the commit.
func (r *ElectionRepo) WithTx(ctx context.Context, fn func(tx election.Tx) error) error {
	tx := &memTx{
		repo:   r,
		held:   make(map[int64]*sync.Mutex),
		closes: make(map[int64]string),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (r *ElectionRepo) rowLock(id int64) (*sync.Mutex, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.positions[id]; !ok {
		return nil, false
	}
	l, ok := r.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		r.rowLocks[id] = l
	}
	return l, true
}

type memTx struct {
	repo    *ElectionRepo
	held    map[int64]*sync.Mutex
	closes  map[int64]string
	inserts []election.Nomination
}

func (t *memTx) LockPosition(ctx context.Context, id int64) (*election.Position, error) {
	if _, ok := t.held[id]; !ok {
		l, found := t.repo.rowLock(id)
		if !found {
			return nil, election.ErrPositionNotFound
		}
		l.Lock()
		t.held[id] = l
	}

	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	p := *t.repo.positions[id]
	if pollID, ok := t.closes[id]; ok {
		p.IsOpen = false
		p.PollID = &pollID
	}
	return &p, nil
}

func (t *memTx) AcceptedNominations(ctx context.Context, positionID int64) ([]election.Nomination, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	res := []election.Nomination{}
	for _, n := range t.repo.nominations {
		if n.PositionID == positionID && n.Accepted {
			res = append(res, n)
		}
	}
	return res, nil
}

func (t *memTx) InsertNomination(ctx context.Context, n *election.Nomination) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	if _, ok := t.repo.positions[n.PositionID]; !ok {
		return election.ErrPositionNotFound
	}
	for _, existing := range t.repo.nominations {
		if existing.PositionID == n.PositionID && existing.Username == n.Username {
			return election.ErrDuplicateNomination
		}
	}
	for _, staged := range t.inserts {
		if staged.PositionID == n.PositionID && staged.Username == n.Username {
			return election.ErrDuplicateNomination
		}
	}

	n.Accepted = false
	n.NominatedAt = t.repo.now().UTC()
	t.inserts = append(t.inserts, *n)
	return nil
}

func (t *memTx) MarkClosed(ctx context.Context, id int64, pollID string) (*election.Position, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	stored, ok := t.repo.positions[id]
	if !ok {
		return nil, election.ErrPositionNotFound
	}
	if _, staged := t.closes[id]; staged || !stored.IsOpen {
		return nil, election.ErrAlreadyClosed
	}
	t.closes[id] = pollID

	p := *stored
	p.IsOpen = false
	p.PollID = &pollID
	return &p, nil
}

func (t *memTx) commit() {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	for id, pollID := range t.closes {
		pollID := pollID
		p := t.repo.positions[id]
		p.IsOpen = false
		p.PollID = &pollID
	}
	t.repo.nominations = append(t.repo.nominations, t.inserts...)
}

func (t *memTx) release() {
	for _, l := range t.held {
		l.Unlock()
	}
}
