// Package storage provides SQLite-based persistence for match results and
// per-turn records. Uses the pure-Go modernc.org/sqlite driver to avoid CGO
// dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/robot-arena/internal/arena"
	"github.com/vovakirdan/robot-arena/internal/core"
	"github.com/vovakirdan/robot-arena/internal/game"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// MatchRecord is a stored match outcome.
type MatchRecord struct {
	ID           int64
	MatchID      string
	Seed         int64
	Player1Agent string
	Player2Agent string
	Score1       int
	Score2       int
	Winner       string // "P1", "P2" or empty on a draw
	Turns        int
	EndReason    string
	Faults1      int
	Faults2      int
	Duration     time.Duration
	CreatedAt    time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	// Matches finish on their own goroutines; one writer avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL UNIQUE,
			seed INTEGER NOT NULL,
			player1_agent TEXT NOT NULL,
			player2_agent TEXT NOT NULL,
			score1 INTEGER NOT NULL DEFAULT 0,
			score2 INTEGER NOT NULL DEFAULT 0,
			winner TEXT,
			turns INTEGER NOT NULL DEFAULT 0,
			end_reason TEXT NOT NULL,
			faults1 INTEGER NOT NULL DEFAULT 0,
			faults2 INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_matches_player1 ON matches(player1_agent);
		CREATE INDEX IF NOT EXISTS idx_matches_player2 ON matches(player2_agent);

		CREATE TABLE IF NOT EXISTS turn_records (
			match_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			name TEXT NOT NULL,
			target_x INTEGER,
			target_y INTEGER,
			hp INTEGER NOT NULL,
			hp_end INTEGER NOT NULL,
			loc_end_x INTEGER NOT NULL,
			loc_end_y INTEGER NOT NULL,
			player INTEGER NOT NULL,
			PRIMARY KEY (match_id, turn, x, y)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveMatch records a finished match.
// Returns the ID of the inserted record.
func (s *Store) SaveMatch(m MatchRecord) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO matches
		 (match_id, seed, player1_agent, player2_agent, score1, score2, winner, turns, end_reason, faults1, faults2, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MatchID,
		m.Seed,
		m.Player1Agent,
		m.Player2Agent,
		m.Score1,
		m.Score2,
		m.Winner,
		m.Turns,
		m.EndReason,
		m.Faults1,
		m.Faults2,
		m.Duration.Milliseconds(),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save match: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// SaveMatchResult implements arena.MatchResultSaver.
func (s *Store) SaveMatchResult(r arena.MatchResult) error {
	_, err := s.SaveMatch(MatchRecord{
		MatchID:      string(r.MatchID),
		Seed:         r.Seed,
		Player1Agent: r.Agents[0],
		Player2Agent: r.Agents[1],
		Score1:       r.Scores[0],
		Score2:       r.Scores[1],
		Winner:       r.Winner,
		Turns:        r.Turns,
		EndReason:    string(r.EndReason),
		Faults1:      r.Faults[0],
		Faults2:      r.Faults[1],
		Duration:     r.Duration,
	})
	return err
}

// SaveTurn implements arena.TurnSaver. All records of a turn are written in
// one transaction.
func (s *Store) SaveTurn(matchID string, turn int, records game.TurnRecords) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(
		`INSERT INTO turn_records
		 (match_id, turn, x, y, name, target_x, target_y, hp, hp_end, loc_end_x, loc_end_y, player)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records.Sorted() {
		var targetX, targetY sql.NullInt64
		if r.Target != nil {
			targetX = sql.NullInt64{Int64: int64(r.Target.X), Valid: true}
			targetY = sql.NullInt64{Int64: int64(r.Target.Y), Valid: true}
		}
		if _, err = stmt.Exec(matchID, turn, r.Loc.X, r.Loc.Y, r.Name, targetX, targetY,
			r.HP, r.HPEnd, r.LocEnd.X, r.LocEnd.Y, int(r.Player)); err != nil {
			return fmt.Errorf("storage: cannot save turn %d: %w", turn, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit turn %d: %w", turn, err)
	}
	return nil
}

// Ensure Store implements the coordinator's saver interfaces.
var (
	_ arena.MatchResultSaver = (*Store)(nil)
	_ arena.TurnSaver        = (*Store)(nil)
)

const matchColumns = `id, match_id, seed, player1_agent, player2_agent, score1, score2,
	winner, turns, end_reason, faults1, faults2, duration_ms, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (MatchRecord, error) {
	var m MatchRecord
	var winner sql.NullString
	var durationMS int64
	var createdAt any
	err := row.Scan(
		&m.ID,
		&m.MatchID,
		&m.Seed,
		&m.Player1Agent,
		&m.Player2Agent,
		&m.Score1,
		&m.Score2,
		&winner,
		&m.Turns,
		&m.EndReason,
		&m.Faults1,
		&m.Faults2,
		&durationMS,
		&createdAt,
	)
	if err != nil {
		return m, err
	}
	m.Winner = winner.String
	m.Duration = time.Duration(durationMS) * time.Millisecond
	m.CreatedAt = parseTime(createdAt)
	return m, nil
}

// MatchByID retrieves a match by its match ID. Returns nil if not found.
func (s *Store) MatchByID(matchID string) (*MatchRecord, error) {
	m, err := scanMatch(s.db.QueryRow(
		`SELECT `+matchColumns+` FROM matches WHERE match_id = ?`, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query match: %w", err)
	}
	return &m, nil
}

// RecentMatches retrieves the most recent matches.
func (s *Store) RecentMatches(limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+matchColumns+` FROM matches ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query matches: %w", err)
	}
	defer rows.Close()

	var results []MatchRecord
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return results, nil
}

// TurnRecords retrieves the stored records of one turn of a match.
func (s *Store) TurnRecords(matchID string, turn int) (game.TurnRecords, error) {
	rows, err := s.db.Query(
		`SELECT x, y, name, target_x, target_y, hp, hp_end, loc_end_x, loc_end_y, player
		 FROM turn_records
		 WHERE match_id = ? AND turn = ?`,
		matchID, turn,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query turn records: %w", err)
	}
	defer rows.Close()

	records := make(game.TurnRecords)
	for rows.Next() {
		var r game.TurnRecord
		var targetX, targetY sql.NullInt64
		var player int
		if err := rows.Scan(&r.Loc.X, &r.Loc.Y, &r.Name, &targetX, &targetY,
			&r.HP, &r.HPEnd, &r.LocEnd.X, &r.LocEnd.Y, &player); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		if targetX.Valid && targetY.Valid {
			target := core.L(int(targetX.Int64), int(targetY.Int64))
			r.Target = &target
		}
		r.Player = core.PlayerID(player)
		records[r.Loc] = r
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return records, nil
}

// AgentStats contains aggregated results for one agent over all its matches.
type AgentStats struct {
	Agent      string
	Matches    int
	Wins       int
	Losses     int
	Draws      int
	AvgScore   float64
	LastPlayed time.Time
}

// AgentStats aggregates completed matches per agent, regardless of side.
func (s *Store) AgentStats() (map[string]*AgentStats, error) {
	rows, err := s.db.Query(
		`SELECT agent, COUNT(*),
		        SUM(CASE WHEN winner = side THEN 1 ELSE 0 END),
		        SUM(CASE WHEN winner != '' AND winner != side THEN 1 ELSE 0 END),
		        SUM(CASE WHEN winner = '' OR winner IS NULL THEN 1 ELSE 0 END),
		        AVG(score), MAX(created_at)
		 FROM (
		     SELECT player1_agent AS agent, 'P1' AS side, score1 AS score, winner, created_at
		     FROM matches WHERE end_reason = 'completed'
		     UNION ALL
		     SELECT player2_agent, 'P2', score2, winner, created_at
		     FROM matches WHERE end_reason = 'completed'
		 )
		 GROUP BY agent`,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get agent stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]*AgentStats)
	for rows.Next() {
		var st AgentStats
		var lastPlayed any
		if err := rows.Scan(&st.Agent, &st.Matches, &st.Wins, &st.Losses, &st.Draws, &st.AvgScore, &lastPlayed); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		st.LastPlayed = parseTime(lastPlayed)
		stats[st.Agent] = &st
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}

// parseTime handles the datetime column as either time.Time or string,
// depending on how the driver returns it.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano} {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}
