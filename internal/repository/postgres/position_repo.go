package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"election-service/internal/domain/election"
)

// ElectionRepo stores positions and nominations in Postgres.
type ElectionRepo struct {
	db *sqlx.DB
}

func NewElectionRepo(db *sql.DB) *ElectionRepo {
	return &ElectionRepo{db: sqlx.NewDb(db, "pgx")}
}

const positionColumns = `position_id, meeting_id, agenda_item_id, position_name, is_open, poll_id::text AS poll_id, created_at`

type positionRow struct {
	ID           int64          `db:"position_id"`
	MeetingID    int64          `db:"meeting_id"`
	AgendaItemID sql.NullString `db:"agenda_item_id"`
	Name         string         `db:"position_name"`
	IsOpen       bool           `db:"is_open"`
	PollID       sql.NullString `db:"poll_id"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r positionRow) toDomain() election.Position {
	p := election.Position{
		ID:        r.ID,
		MeetingID: r.MeetingID,
		Name:      r.Name,
		IsOpen:    r.IsOpen,
		CreatedAt: r.CreatedAt,
	}
	if r.AgendaItemID.Valid {
		v := r.AgendaItemID.String
		p.AgendaItemID = &v
	}
	if r.PollID.Valid {
		v := r.PollID.String
		p.PollID = &v
	}
	return p
}

func (r *ElectionRepo) CreatePosition(ctx context.Context, p *election.Position) error {
	query := `
        INSERT INTO positions (meeting_id, agenda_item_id, position_name)
        VALUES ($1, $2, $3)
        RETURNING ` + positionColumns

	var row positionRow
	if err := r.db.GetContext(ctx, &row, query, p.MeetingID, p.AgendaItemID, p.Name); err != nil {
		return storeErr("create position", err)
	}
	*p = row.toDomain()
	return nil
}

func (r *ElectionRepo) GetPosition(ctx context.Context, id int64) (*election.Position, error) {
	var row positionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+positionColumns+` FROM positions WHERE position_id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, election.ErrPositionNotFound
		}
		return nil, storeErr("get position", err)
	}
	p := row.toDomain()
	return &p, nil
}

func (r *ElectionRepo) ListPositions(ctx context.Context, f election.PositionFilter) ([]election.Position, error) {
	var (
		where []string
		args  []any
	)
	if f.MeetingID != nil {
		args = append(args, *f.MeetingID)
		where = append(where, fmt.Sprintf("meeting_id = $%d", len(args)))
	}
	if f.AgendaItemID != nil {
		args = append(args, *f.AgendaItemID)
		where = append(where, fmt.Sprintf("agenda_item_id = $%d", len(args)))
	}
	if f.IsOpen != nil {
		args = append(args, *f.IsOpen)
		where = append(where, fmt.Sprintf("is_open = $%d", len(args)))
	}

	query := `SELECT ` + positionColumns + ` FROM positions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY position_id"

	var rows []positionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storeErr("list positions", err)
	}

	res := make([]election.Position, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toDomain())
	}
	return res, nil
}

func (r *ElectionRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithTx runs fn inside a read-committed transaction. Row locks taken through
// the Tx are held until commit or rollback.
func (r *ElectionRepo) WithTx(ctx context.Context, fn func(tx election.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit", err)
	}
	return nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", election.ErrStore, op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
