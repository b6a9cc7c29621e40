package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"election-service/internal/domain/election"
)

const nominationColumns = `position_id, username, accepted, nominated_at`

type nominationRow struct {
	PositionID  int64     `db:"position_id"`
	Username    string    `db:"username"`
	Accepted    bool      `db:"accepted"`
	NominatedAt time.Time `db:"nominated_at"`
}

func (r nominationRow) toDomain() election.Nomination {
	return election.Nomination{
		PositionID:  r.PositionID,
		Username:    r.Username,
		Accepted:    r.Accepted,
		NominatedAt: r.NominatedAt,
	}
}

// selecter is satisfied by *sqlx.DB and *sqlx.Tx.
type selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func selectNominations(ctx context.Context, q selecter, query string, args ...any) ([]election.Nomination, error) {
	var rows []nominationRow
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storeErr("list nominations", err)
	}
	res := make([]election.Nomination, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toDomain())
	}
	return res, nil
}

func (r *ElectionRepo) ListNominations(ctx context.Context, positionID int64) ([]election.Nomination, error) {
	return selectNominations(ctx, r.db, `
        SELECT `+nominationColumns+`
        FROM nominations
        WHERE position_id = $1
        ORDER BY nomination_seq
    `, positionID)
}

func (r *ElectionRepo) FindNominations(ctx context.Context, positionID int64, username string) ([]election.Nomination, error) {
	return selectNominations(ctx, r.db, `
        SELECT `+nominationColumns+`
        FROM nominations
        WHERE position_id = $1 AND username = $2
    `, positionID, username)
}

func (r *ElectionRepo) AcceptNomination(ctx context.Context, positionID int64, username string) (*election.Nomination, error) {
	var row nominationRow
	err := r.db.GetContext(ctx, &row, `
        UPDATE nominations
        SET accepted = TRUE
        WHERE position_id = $1 AND username = $2
        RETURNING `+nominationColumns,
		positionID, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, election.ErrNominationNotFound
		}
		return nil, storeErr("accept nomination", err)
	}
	n := row.toDomain()
	return &n, nil
}
