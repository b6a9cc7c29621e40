package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"election-service/internal/domain/election"
)

type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) LockPosition(ctx context.Context, id int64) (*election.Position, error) {
	var row positionRow
	err := t.tx.GetContext(ctx, &row,
		`SELECT `+positionColumns+` FROM positions WHERE position_id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, election.ErrPositionNotFound
		}
		return nil, storeErr("lock position", err)
	}
	p := row.toDomain()
	return &p, nil
}

func (t *sqlTx) AcceptedNominations(ctx context.Context, positionID int64) ([]election.Nomination, error) {
	return selectNominations(ctx, t.tx, `
        SELECT `+nominationColumns+`
        FROM nominations
        WHERE position_id = $1 AND accepted
        ORDER BY nomination_seq
    `, positionID)
}

func (t *sqlTx) InsertNomination(ctx context.Context, n *election.Nomination) error {
	var row nominationRow
	err := t.tx.GetContext(ctx, &row, `
        INSERT INTO nominations (position_id, username)
        VALUES ($1, $2)
        RETURNING `+nominationColumns,
		n.PositionID, n.Username)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return election.ErrDuplicateNomination
		case isForeignKeyViolation(err):
			return election.ErrPositionNotFound
		}
		return storeErr("insert nomination", err)
	}
	*n = row.toDomain()
	return nil
}

// MarkClosed only updates a row that is still open, so a lost race shows up
// as ErrAlreadyClosed instead of a second poll id.
func (t *sqlTx) MarkClosed(ctx context.Context, id int64, pollID string) (*election.Position, error) {
	var row positionRow
	err := t.tx.GetContext(ctx, &row, `
        UPDATE positions
        SET is_open = FALSE, poll_id = $2::uuid
        WHERE position_id = $1 AND is_open
        RETURNING `+positionColumns,
		id, pollID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, election.ErrAlreadyClosed
		}
		return nil, storeErr("close position", err)
	}
	p := row.toDomain()
	return &p, nil
}
