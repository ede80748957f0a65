// Package stats persists cumulative fill statistics in a local SQLite file.
// Volume and fill counts are keyed by (account, symbol) and survive process
// restarts.
package stats

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/chikanerick/asterdex-trading-bot/internal/types"
	"github.com/chikanerick/asterdex-trading-bot/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS fill_stats (
	account     TEXT NOT NULL,
	symbol      TEXT NOT NULL,
	long_fills  INTEGER NOT NULL DEFAULT 0,
	short_fills INTEGER NOT NULL DEFAULT 0,
	volume_usdt TEXT NOT NULL DEFAULT '0',
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (account, symbol)
);`

// Entry is one account/symbol row of cumulative statistics.
type Entry struct {
	Account    string
	Symbol     string
	LongFills  int64
	ShortFills int64
	VolumeUSDT decimal.Decimal
}

// SQLiteSink stores fill statistics in a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// Open opens (or creates) the statistics database at path. Pass ":memory:"
// for an ephemeral database.
func Open(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatsSinkFailed, "open statistics database", err)
	}

	// The file is written from a single goroutine, so one connection is
	// enough and sidesteps SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStatsSinkFailed, "create statistics schema", err)
	}

	return &SQLiteSink{db: db}, nil
}

// Close releases the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// RecordFill adds one confirmed fill to the account's cumulative row. The
// USD volume is quantity times price; volume is stored as decimal text so
// repeated additions stay exact.
func (s *SQLiteSink) RecordFill(ctx context.Context, account string, symbol string, side types.Side, quantity decimal.Decimal, price decimal.Decimal) error {
	notional := quantity.Mul(price)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStatsSinkFailed, "begin statistics transaction", err)
	}
	defer tx.Rollback()

	var volumeText string
	var longFills, shortFills int64

	row := tx.QueryRowContext(ctx,
		`SELECT long_fills, short_fills, volume_usdt FROM fill_stats WHERE account = ? AND symbol = ?`,
		account, symbol)

	switch err := row.Scan(&longFills, &shortFills, &volumeText); err {
	case nil:
	case sql.ErrNoRows:
		volumeText = "0"
	default:
		return errors.Wrap(errors.ErrCodeStatsSinkFailed, "read statistics row", err)
	}

	volume, err := decimal.NewFromString(volumeText)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStatsSinkFailed, err, "corrupt volume %q for %s/%s", volumeText, account, symbol)
	}

	if side == types.SideBuy {
		longFills++
	} else {
		shortFills++
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO fill_stats (account, symbol, long_fills, short_fills, volume_usdt, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (account, symbol) DO UPDATE SET
			long_fills = excluded.long_fills,
			short_fills = excluded.short_fills,
			volume_usdt = excluded.volume_usdt,
			updated_at = excluded.updated_at`,
		account, symbol, longFills, shortFills,
		volume.Add(notional).String(), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStatsSinkFailed, "write statistics row", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStatsSinkFailed, "commit statistics", err)
	}

	return nil
}

// Entries returns every statistics row ordered by account then symbol.
func (s *SQLiteSink) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account, symbol, long_fills, short_fills, volume_usdt FROM fill_stats ORDER BY account, symbol`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStatsSinkFailed, "query statistics", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var volumeText string

		if err := rows.Scan(&entry.Account, &entry.Symbol, &entry.LongFills, &entry.ShortFills, &volumeText); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStatsSinkFailed, "scan statistics row", err)
		}

		entry.VolumeUSDT, err = decimal.NewFromString(volumeText)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStatsSinkFailed, err, "corrupt volume %q", volumeText)
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
