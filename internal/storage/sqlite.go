package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/cluster"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/engine"
	"github.com/ducminhle1904/pattern-cluster-bot/pkg/types"
)

// Store persists closed trades to the backtest SQLite database and
// reads historical bars and aggregated cluster statistics from it.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so reporting tools can read while a run is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cluster_strategy_trades (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			instrument       TEXT NOT NULL,
			entry_date       TEXT NOT NULL,
			exit_date        TEXT NOT NULL,
			entry_price      REAL NOT NULL,
			exit_price       REAL NOT NULL,
			shares           REAL NOT NULL,
			gross_profit     REAL NOT NULL,
			pnl_percentage   REAL NOT NULL,
			total_commission REAL NOT NULL,
			exit_reason      TEXT NOT NULL,
			days_held        INTEGER NOT NULL,
			created_at       TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_entry ON cluster_strategy_trades(entry_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record implements engine.TradeRecorder.
func (s *Store) Record(trade engine.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO cluster_strategy_trades (
			instrument, entry_date, exit_date, entry_price, exit_price,
			shares, gross_profit, pnl_percentage, total_commission,
			exit_reason, days_held, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Instrument,
		trade.EntryDate.Format("2006-01-02"),
		trade.ExitDate.Format("2006-01-02"),
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Size,
		trade.GrossPnL,
		trade.PnLPercent,
		trade.Commission,
		trade.ExitReason.String(),
		trade.DaysHeld,
		time.Now().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// Trades loads all recorded trades for an instrument, oldest first.
func (s *Store) Trades(instrument string) ([]engine.TradeRecord, error) {
	rows, err := s.db.Query(`
		SELECT instrument, entry_date, exit_date, entry_price, exit_price,
		       shares, gross_profit, pnl_percentage, total_commission, days_held
		FROM cluster_strategy_trades
		WHERE instrument = ?
		ORDER BY entry_date ASC`, instrument)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []engine.TradeRecord
	for rows.Next() {
		var t engine.TradeRecord
		var entryDate, exitDate string
		if err := rows.Scan(&t.Instrument, &entryDate, &exitDate, &t.EntryPrice, &t.ExitPrice,
			&t.Size, &t.GrossPnL, &t.PnLPercent, &t.Commission, &t.DaysHeld); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		if t.EntryDate, err = time.Parse("2006-01-02", entryDate); err != nil {
			return nil, fmt.Errorf("parse entry date: %w", err)
		}
		if t.ExitDate, err = time.Parse("2006-01-02", exitDate); err != nil {
			return nil, fmt.Errorf("parse exit date: %w", err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Bars loads the daily bars for a symbol from the historical data
// table, oldest first. Dates are stored as unix seconds.
func (s *Store) Bars(symbol string) ([]types.Bar, error) {
	rows, err := s.db.Query(`
		SELECT date, open, high, low, close, volume
		FROM stock_historical_data
		WHERE symbol = ?
		ORDER BY date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []types.Bar
	for rows.Next() {
		var ts int64
		var b types.Bar
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ClusterStatsSource implements cluster.Source over the aggregated
// 4-day pattern table written by the offline clustering job. Signals
// and confidences are the hand-tuned reference constants; the expected
// return is refreshed from the database aggregates.
type ClusterStatsSource struct {
	store *Store
}

// NewClusterStatsSource creates a source backed by the store.
func NewClusterStatsSource(store *Store) *ClusterStatsSource {
	return &ClusterStatsSource{store: store}
}

// Load implements cluster.Source.
func (c *ClusterStatsSource) Load() (map[cluster.ID]cluster.Profile, error) {
	profiles, err := cluster.StaticSource{}.Load()
	if err != nil {
		return nil, err
	}

	rows, err := c.store.db.Query(`
		SELECT cluster, AVG(total_4day_return) AS avg_return
		FROM spxl_4day_clusters
		GROUP BY cluster
		ORDER BY cluster`)
	if err != nil {
		return nil, fmt.Errorf("query cluster stats: %w", err)
	}
	defer rows.Close()

	found := 0
	for rows.Next() {
		var id int
		var avgReturn float64
		if err := rows.Scan(&id, &avgReturn); err != nil {
			return nil, fmt.Errorf("scan cluster stats: %w", err)
		}
		if p, ok := profiles[cluster.ID(id)]; ok {
			p.ExpectedReturn = avgReturn
			profiles[cluster.ID(id)] = p
			found++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if found == 0 {
		return nil, fmt.Errorf("no cluster statistics in database")
	}
	return profiles, nil
}
