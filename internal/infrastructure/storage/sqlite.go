package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/signal_trader/internal/domain"
)

// lastTradeRowID pins the single last-trade row.
const lastTradeRowID = 1

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS last_trade (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			symbol TEXT NOT NULL,
			base_currency TEXT NOT NULL,
			market TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// LastTradeStore Implementation

func (s *SQLiteStore) SaveLastTrade(ctx context.Context, record domain.LastTradeRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	query := `INSERT INTO last_trade (id, symbol, base_currency, market, updated_at)
			  VALUES (?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  symbol=excluded.symbol,
			  base_currency=excluded.base_currency,
			  market=excluded.market,
			  updated_at=excluded.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		lastTradeRowID, record.Symbol, record.BaseCurrency, string(record.Market), record.UpdatedAt)
	return err
}

func (s *SQLiteStore) GetLastTrade(ctx context.Context) (domain.LastTradeRecord, bool, error) {
	query := `SELECT symbol, base_currency, market, updated_at FROM last_trade WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, lastTradeRowID)

	var (
		r      domain.LastTradeRecord
		market string
	)
	err := row.Scan(&r.Symbol, &r.BaseCurrency, &market, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.LastTradeRecord{}, false, nil
	}
	if err != nil {
		return domain.LastTradeRecord{}, false, err
	}
	r.Market = domain.Market(market)
	return r, true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
