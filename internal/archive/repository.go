package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Result is the final outcome of one match. Move history is not
// archived; only the terminal record survives.
type Result struct {
	MatchID       string
	WhiteID       string
	WhiteName     string
	BlackID       string
	BlackName     string
	Winner        string // white | black | draw
	Termination   string // checkmate | stalemate | draw-rule | resignation
	FinalPosition string
	LastMoveSAN   string
	StartedAt     time.Time
	EndedAt       time.Time
}

// Repository archives finished matches in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts the terminal record. Re-saving the same match id
// is idempotent so a retried shutdown path cannot duplicate rows.
func (r *Repository) SaveResult(ctx context.Context, res *Result) error {
	if r == nil || r.db == nil || res == nil {
		return nil
	}

	duration := res.EndedAt.Sub(res.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO match_results (
	    match_id, white_id, white_name, black_id, black_name,
	    winner, termination, final_position, last_move_san,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
	  ) ON CONFLICT (match_id) DO UPDATE SET
	    winner=EXCLUDED.winner,
	    termination=EXCLUDED.termination,
	    final_position=EXCLUDED.final_position,
	    last_move_san=EXCLUDED.last_move_san,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		res.MatchID,
		res.WhiteID, res.WhiteName,
		res.BlackID, res.BlackName,
		res.Winner, res.Termination, res.FinalPosition, res.LastMoveSAN,
		res.StartedAt, res.EndedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("archive match result: %w", err)
	}
	return nil
}
