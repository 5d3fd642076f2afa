package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/tradebook/market"
)

// SQLite stores timestamps as "YYYY-MM-DD HH:MM:SS" wall-clock text in
// loc, the format existing ledgers were written in.
type SQLite struct {
	db  *sql.DB
	loc *time.Location
}

var _ Store = (*SQLite)(nil)

func NewSQLite(path string, loc *time.Location) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases whole and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if loc == nil {
		loc = time.Local
	}
	j := &SQLite{db: db, loc: loc}
	if err := j.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Migrate creates missing tables and upgrades ledgers that predate the
// trade_time and created_at columns. trade_time is back-filled from the
// legacy time column.
func (j *SQLite) Migrate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	cols, err := j.columns(ctx, "trades")
	if err != nil {
		return err
	}
	if !cols["trade_time"] {
		if _, err := j.db.ExecContext(ctx, `ALTER TABLE trades ADD COLUMN trade_time TEXT`); err != nil {
			return fmt.Errorf("add trade_time: %w", err)
		}
		if cols["time"] {
			if _, err := j.db.ExecContext(ctx, `UPDATE trades SET trade_time = time`); err != nil {
				return fmt.Errorf("backfill trade_time: %w", err)
			}
		}
	}
	if !cols["created_at"] {
		if _, err := j.db.ExecContext(ctx, `ALTER TABLE trades ADD COLUMN created_at TEXT`); err != nil {
			return fmt.Errorf("add created_at: %w", err)
		}
	}

	if _, err := j.db.ExecContext(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (j *SQLite) columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := j.db.QueryContext(ctx, `PRAGMA table_info(`+table+`)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func (j *SQLite) InsertTrade(ctx context.Context, t TradeRecord) (int64, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO trades
		(symbol, side, entry, exit, qty, pnl, fee, rebate, real_profit, trade_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Symbol, string(t.Side), t.Entry, t.Exit, t.Qty,
		t.PnL, t.Fee, t.Rebate, t.RealizedProfit,
		j.format(t.CloseTime), j.format(t.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (j *SQLite) QueryTrades(ctx context.Context, f TradeFilter) ([]TradeRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.ID != 0 {
		where = append(where, "id = ?")
		args = append(args, f.ID)
	}
	if f.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.Side != "" {
		// Legacy rows carry the Chinese labels.
		where = append(where, "side IN (?, ?)")
		args = append(args, string(f.Side), f.Side.Label())
	}
	if !f.CloseTime.IsZero() {
		where = append(where, "trade_time = ?")
		args = append(args, j.format(f.CloseTime))
	}
	if !f.From.IsZero() {
		where = append(where, "trade_time >= ?")
		args = append(args, j.format(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "trade_time < ?")
		args = append(args, j.format(f.To))
	}

	q := `
		SELECT id, symbol, side, entry, exit, qty, pnl, fee, rebate, real_profit, trade_time, created_at
		FROM trades`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Newest {
		q += " ORDER BY trade_time DESC, id DESC"
	} else {
		q += " ORDER BY trade_time ASC, id ASC"
	}
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			rec       TradeRecord
			side      string
			tradeTime sql.NullString
			createdAt sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Symbol,
			&side,
			&rec.Entry,
			&rec.Exit,
			&rec.Qty,
			&rec.PnL,
			&rec.Fee,
			&rec.Rebate,
			&rec.RealizedProfit,
			&tradeTime,
			&createdAt,
		); err != nil {
			return nil, err
		}
		if rec.Side, err = market.ParseSide(side); err != nil {
			return nil, fmt.Errorf("trade %d: %w", rec.ID, err)
		}
		if rec.CloseTime, err = j.parse(tradeTime); err != nil {
			return nil, fmt.Errorf("trade %d: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = j.parse(createdAt); err != nil {
			return nil, fmt.Errorf("trade %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) DeleteTrade(ctx context.Context, id int64) (bool, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (j *SQLite) ClearTrades(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name = 'trades'`); err != nil {
		return err
	}
	return tx.Commit()
}

func (j *SQLite) Reindex(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, reindexSQL); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	if _, err := tx.ExecContext(ctx, indexes); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	return tx.Commit()
}

func (j *SQLite) InsertBalanceOp(ctx context.Context, op BalanceOp) (int64, error) {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now()
	}
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO balance_ops (user_id, op_type, amount, created_at)
		VALUES (?, ?, ?, ?)`,
		op.Operator, string(op.Kind), op.Amount, j.format(op.CreatedAt),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (j *SQLite) QueryBalanceOps(ctx context.Context, f BalanceFilter) ([]BalanceOp, error) {
	var (
		where []string
		args  []any
	)
	if f.Operator != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.Operator)
	}
	if f.Kind != "" {
		where = append(where, "op_type = ?")
		args = append(args, string(f.Kind))
	}
	q := `SELECT id, user_id, op_type, amount, created_at FROM balance_ops`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id ASC"

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BalanceOp
	for rows.Next() {
		var (
			op        BalanceOp
			kind      string
			createdAt sql.NullString
		)
		if err := rows.Scan(&op.ID, &op.Operator, &kind, &op.Amount, &createdAt); err != nil {
			return nil, err
		}
		op.Kind = BalanceKind(kind)
		if op.CreatedAt, err = j.parse(createdAt); err != nil {
			return nil, fmt.Errorf("balance op %d: %w", op.ID, err)
		}
		out = append(out, op)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func (j *SQLite) format(t time.Time) string {
	return market.FormatTimestamp(t.In(j.loc))
}

func (j *SQLite) parse(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return market.ParseTimestamp(s.String, j.loc)
}
