// Package sqlite persists finished backtest batches. One row per trial,
// keyed by (batch, trial), so re-running a batch under the same name
// replaces its rows instead of duplicating them.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"tradelens/internal/backtest"
	"tradelens/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a single-writer SQLite store for trial outcomes.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and ensures the schema exists.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer connection pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS outcomes (
			batch       TEXT    NOT NULL,
			trial       INTEGER NOT NULL,
			decision_ts INTEGER NOT NULL,
			open_ts     INTEGER,
			profit1_ts  INTEGER,
			profit2_ts  INTEGER,
			profit3_ts  INTEGER,
			loss_ts     INTEGER,
			trade_type  TEXT,
			open_price  REAL,
			tp1         REAL,
			tp2         REAL,
			tp3         REAL,
			stop_loss   REAL,
			profitable  INTEGER,
			error       TEXT,
			PRIMARY KEY (batch, trial)
		);
	`)
	return err
}

// SaveResults writes all trial results of a batch in a single transaction.
func (s *Store) SaveResults(batch string, results []backtest.TrialResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO outcomes
			(batch, trial, decision_ts, open_ts, profit1_ts, profit2_ts, profit3_ts, loss_ts,
			 trade_type, open_price, tp1, tp2, tp3, stop_loss, profitable, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	start := time.Now()
	for _, tr := range results {
		var (
			openTS, p1, p2, p3, loss         sql.NullInt64
			tradeType                        sql.NullString
			openPrice, tp1, tp2, tp3, stopPx sql.NullFloat64
			profitable                       sql.NullInt64
		)
		if out := tr.Outcome; out != nil {
			if !out.OpenTS.IsZero() {
				openTS = sql.NullInt64{Int64: out.OpenTS.UnixMilli(), Valid: true}
			}
			p1 = nullMilli(out.Profit1TS)
			p2 = nullMilli(out.Profit2TS)
			p3 = nullMilli(out.Profit3TS)
			loss = nullMilli(out.LossTS)
			tradeType = sql.NullString{String: out.TradeType.String(), Valid: true}
			openPrice = sql.NullFloat64{Float64: out.OpenPrice, Valid: true}
			tp1 = sql.NullFloat64{Float64: out.TakeProfit[0], Valid: true}
			tp2 = sql.NullFloat64{Float64: out.TakeProfit[1], Valid: true}
			tp3 = sql.NullFloat64{Float64: out.TakeProfit[2], Valid: true}
			stopPx = sql.NullFloat64{Float64: out.StopLoss, Valid: true}
			if won, applicable := out.Profitable.Bool(); applicable {
				var n int64
				if won {
					n = 1
				}
				profitable = sql.NullInt64{Int64: n, Valid: true}
			}
		}
		_, err := stmt.Exec(batch, tr.Trial, tr.DecisionTS.UnixMilli(),
			openTS, p1, p2, p3, loss,
			tradeType, openPrice, tp1, tp2, tp3, stopPx, profitable,
			sql.NullString{String: tr.Err, Valid: tr.Err != ""})
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[sqlite] committed %d trials for batch %q in %v", len(results), batch, time.Since(start))
	return nil
}

// ReadBatch loads a batch's trial results ordered by trial index.
func (s *Store) ReadBatch(batch string) ([]backtest.TrialResult, error) {
	rows, err := s.db.Query(`
		SELECT trial, decision_ts, open_ts, profit1_ts, profit2_ts, profit3_ts, loss_ts,
		       trade_type, open_price, tp1, tp2, tp3, stop_loss, profitable, error
		FROM outcomes
		WHERE batch = ?
		ORDER BY trial ASC
	`, batch)
	if err != nil {
		return nil, fmt.Errorf("sqlite query outcomes: %w", err)
	}
	defer rows.Close()

	var results []backtest.TrialResult
	for rows.Next() {
		var (
			tr                               backtest.TrialResult
			decisionMs                       int64
			openTS, p1, p2, p3, loss         sql.NullInt64
			tradeType, errText               sql.NullString
			openPrice, tp1, tp2, tp3, stopPx sql.NullFloat64
			profitable                       sql.NullInt64
		)
		if err := rows.Scan(&tr.Trial, &decisionMs, &openTS, &p1, &p2, &p3, &loss,
			&tradeType, &openPrice, &tp1, &tp2, &tp3, &stopPx, &profitable, &errText); err != nil {
			return nil, fmt.Errorf("sqlite scan outcomes: %w", err)
		}
		tr.DecisionTS = time.UnixMilli(decisionMs).UTC()
		if errText.Valid {
			tr.Err = errText.String
		}
		if tradeType.Valid {
			out := model.OutcomeRecord{
				Profit1TS:  fromMilli(p1),
				Profit2TS:  fromMilli(p2),
				Profit3TS:  fromMilli(p3),
				LossTS:     fromMilli(loss),
				OpenPrice:  openPrice.Float64,
				TakeProfit: [3]float64{tp1.Float64, tp2.Float64, tp3.Float64},
				StopLoss:   stopPx.Float64,
			}
			if openTS.Valid {
				out.OpenTS = time.UnixMilli(openTS.Int64).UTC()
			}
			if out.TradeType, err = model.ParseDecision(tradeType.String); err != nil {
				return nil, err
			}
			switch {
			case !profitable.Valid:
				out.Profitable = model.VerdictNotApplicable
			case profitable.Int64 == 1:
				out.Profitable = model.VerdictProfitable
			default:
				out.Profitable = model.VerdictUnprofitable
			}
			tr.Outcome = &out
		}
		results = append(results, tr)
	}
	return results, rows.Err()
}

func nullMilli(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMilli(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.UnixMilli(n.Int64).UTC()
	return &t
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
