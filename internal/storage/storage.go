// Package storage persists detected signals and closed trades in an embedded
// DuckDB database: an append log that survives a run as Parquet exports.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/quantbee/thresholdbt/internal/logger"
	"github.com/quantbee/thresholdbt/internal/types"
	"github.com/quantbee/thresholdbt/pkg/errors"
)

// Store is the signal and trade append log. It is not safe for concurrent
// writers; one store per simulation driver.
type Store struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewStore opens an in-memory DuckDB database.
func NewStore(log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageInitFailed, "failed to open database", err)
	}

	return &Store{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the signals and trades tables.
func (s *Store) Initialize() error {
	_, err := s.db.Exec(`CREATE SEQUENCE IF NOT EXISTS signal_seq`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageInitFailed, "failed to create sequence", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			signal_id TEXT PRIMARY KEY,
			seq BIGINT DEFAULT nextval('signal_seq'),
			symbol TEXT,
			side TEXT,
			entry_price DOUBLE,
			entry_ts TIMESTAMP,
			stop_price DOUBLE,
			take_price DOUBLE,
			stop_fraction DOUBLE,
			reward_ratio DOUBLE,
			oscillator DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageInitFailed, "failed to create signals table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			trade_id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			entry_ts TIMESTAMP,
			entry_price DOUBLE,
			exit_ts TIMESTAMP,
			exit_price DOUBLE,
			exit_reason TEXT,
			return_fraction DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageInitFailed, "failed to create trades table", err)
	}

	return nil
}

// SaveSignal appends one signal. Absent stop/take fields are stored as NULL.
func (s *Store) SaveSignal(signal types.Signal) error {
	insert := s.sq.
		Insert("signals").
		Columns(
			"signal_id", "symbol", "side", "entry_price", "entry_ts",
			"stop_price", "take_price", "stop_fraction", "reward_ratio", "oscillator",
		).
		Values(
			uuid.New().String(), signal.Symbol, string(signal.Side), signal.EntryPrice, signal.EntryTime,
			nullableFloat(signal.StopPrice), nullableFloat(signal.TakePrice),
			nullableFloat(signal.StopFraction), nullableFloat(signal.RewardRatio),
			signal.Oscillator,
		).
		RunWith(s.db)

	if _, err := insert.Exec(); err != nil {
		return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to insert signal for %s", signal.Symbol)
	}

	return nil
}

// SaveTrades appends closed trades in one transaction.
func (s *Store) SaveTrades(trades []types.Trade) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to begin transaction", err)
	}

	for _, trade := range trades {
		insert := s.sq.
			Insert("trades").
			Columns(
				"trade_id", "symbol", "side", "entry_ts", "entry_price",
				"exit_ts", "exit_price", "exit_reason", "return_fraction",
			).
			Values(
				uuid.New().String(), trade.Symbol, string(trade.Side), trade.EntryTime, trade.EntryPrice,
				trade.ExitTime, trade.ExitPrice, string(trade.ExitReason), trade.Return,
			).
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to insert trade for %s", trade.Symbol)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to commit trades", err)
	}

	return nil
}

// LastSignal returns the most recently appended signal for a symbol, or None
// when the log holds nothing for it.
func (s *Store) LastSignal(symbol string) (optional.Option[types.Signal], error) {
	query := s.sq.
		Select(
			"symbol", "side", "entry_price", "entry_ts",
			"stop_price", "take_price", "stop_fraction", "reward_ratio", "oscillator",
		).
		From("signals").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("seq DESC").
		Limit(1).
		RunWith(s.db)

	var signal types.Signal

	var side string

	var stop, take, stopFraction, rewardRatio sql.NullFloat64

	err := query.QueryRow().Scan(
		&signal.Symbol, &side, &signal.EntryPrice, &signal.EntryTime,
		&stop, &take, &stopFraction, &rewardRatio, &signal.Oscillator,
	)
	if err == sql.ErrNoRows {
		return optional.None[types.Signal](), nil
	}

	if err != nil {
		return optional.None[types.Signal](), errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query last signal for %s", symbol)
	}

	signal.Side = types.Side(side)
	signal.StopPrice = optionFromNull(stop)
	signal.TakePrice = optionFromNull(take)
	signal.StopFraction = optionFromNull(stopFraction)
	signal.RewardRatio = optionFromNull(rewardRatio)

	return optional.Some(signal), nil
}

// CountSignals returns the number of stored signals for a symbol.
func (s *Store) CountSignals(symbol string) (int, error) {
	var count int

	err := s.sq.
		Select("COUNT(*)").
		From("signals").
		Where(squirrel.Eq{"symbol": symbol}).
		RunWith(s.db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count signals for %s", symbol)
	}

	return count, nil
}

// Trades returns all stored trades for a symbol in entry order.
func (s *Store) Trades(symbol string) ([]types.Trade, error) {
	query := s.sq.
		Select(
			"symbol", "side", "entry_ts", "entry_price",
			"exit_ts", "exit_price", "exit_reason", "return_fraction",
		).
		From("trades").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("entry_ts ASC").
		RunWith(s.db)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query trades for %s", symbol)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var (
			trade        types.Trade
			side, reason string
		)

		err := rows.Scan(
			&trade.Symbol, &side, &trade.EntryTime, &trade.EntryPrice,
			&trade.ExitTime, &trade.ExitPrice, &reason, &trade.Return,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trade.Side = types.Side(side)
		trade.ExitReason = types.ExitReason(reason)
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return trades, nil
}

// Export writes the signal and trade logs as Parquet files into the given
// directory.
func (s *Store) Export(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeStorageExportFailed, "failed to create export directory", err)
	}

	signalsPath := filepath.Join(path, "signals.parquet")
	// COPY has no placeholder support in the driver, so the path is inlined.
	if _, err := s.db.Exec(fmt.Sprintf(`COPY signals TO '%s' (FORMAT PARQUET)`, signalsPath)); err != nil {
		return errors.Wrap(errors.ErrCodeStorageExportFailed, "failed to export signals to Parquet", err)
	}

	tradesPath := filepath.Join(path, "trades.parquet")
	if _, err := s.db.Exec(fmt.Sprintf(`COPY trades TO '%s' (FORMAT PARQUET)`, tradesPath)); err != nil {
		return errors.Wrap(errors.ErrCodeStorageExportFailed, "failed to export trades to Parquet", err)
	}

	s.log.Info("Exported signal and trade logs",
		zap.String("signals", signalsPath),
		zap.String("trades", tradesPath),
	)

	return nil
}

// Cleanup drops all rows and reinitializes the schema.
func (s *Store) Cleanup() error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS signals`,
		`DROP TABLE IF EXISTS trades`,
		`DROP SEQUENCE IF EXISTS signal_seq`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeStorageInitFailed, "failed to drop tables", err)
		}
	}

	return s.Initialize()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullableFloat(o optional.Option[float64]) any {
	if o.IsSome() {
		return o.Unwrap()
	}

	return nil
}

func optionFromNull(v sql.NullFloat64) optional.Option[float64] {
	if v.Valid {
		return optional.Some(v.Float64)
	}

	return optional.None[float64]()
}
