package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"riskierwas/internal/model"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens (and creates if needed) an SQLite database file
func OpenSQLite(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("SQLite database opened at: %s", path)
	return db, nil
}

type sqliteResultRepo struct {
	db *sql.DB
}

// NewSQLiteResultRepo creates an embedded result repository for setups
// without MongoDB. It creates its table on first use.
func NewSQLiteResultRepo(db *sql.DB) (ResultRepo, error) {
	createResultsTable := `
	CREATE TABLE IF NOT EXISTS game_results (
		game_id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		host_id TEXT NOT NULL DEFAULT '',
		standings TEXT NOT NULL DEFAULT '[]',
		questions_played INTEGER NOT NULL DEFAULT 0,
		point_decay INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(createResultsTable); err != nil {
		return nil, fmt.Errorf("failed to create game_results table: %w", err)
	}

	createIndex := `CREATE INDEX IF NOT EXISTS idx_game_results_code ON game_results(code, ended_at);`
	if _, err := db.Exec(createIndex); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &sqliteResultRepo{db: db}, nil
}

func (r *sqliteResultRepo) Save(ctx context.Context, result *model.GameResult) error {
	standings, err := json.Marshal(result.Standings)
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO game_results (game_id, code, host_id, standings, questions_played, point_decay, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			standings = excluded.standings,
			questions_played = excluded.questions_played,
			ended_at = excluded.ended_at`,
		result.GameID, result.Code, result.HostID, string(standings),
		result.QuestionsPlayed, result.PointDecay,
		result.StartedAt.UTC(), result.EndedAt.UTC(),
	)
	return err
}

func (r *sqliteResultRepo) GetByCode(ctx context.Context, code string) (*model.GameResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT game_id, code, host_id, standings, questions_played, point_decay, started_at, ended_at
		FROM game_results WHERE code = ? ORDER BY ended_at DESC LIMIT 1`, code)

	result, err := scanResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *sqliteResultRepo) List(ctx context.Context, limit int) ([]*model.GameResult, error) {
	if limit <= 0 {
		limit = defaultResultLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT game_id, code, host_id, standings, questions_played, point_decay, started_at, ended_at
		FROM game_results ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*model.GameResult{}
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*model.GameResult, error) {
	var (
		result    model.GameResult
		standings string
		startedAt time.Time
		endedAt   time.Time
	)
	err := row.Scan(&result.GameID, &result.Code, &result.HostID, &standings,
		&result.QuestionsPlayed, &result.PointDecay, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(standings), &result.Standings); err != nil {
		return nil, fmt.Errorf("failed to parse standings: %w", err)
	}
	result.StartedAt = startedAt
	result.EndedAt = endedAt
	return &result, nil
}
