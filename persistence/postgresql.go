// persistence/postgresql.go
//
// Raw database/sql implementation of the append-only Sink. Plain INSERTs fit
// the write model here better than an ORM: these tables are never updated
// after the fact.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/careerplay/ccm/models"
)

// PostgresSink writes finalized records to PostgreSQL.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink opens a connection pool and ensures the append-only tables
// exist.
func NewPostgresSink(host string, port int, user, password, dbname string) (*PostgresSink, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresSink{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS round_plays (
			id              BIGSERIAL PRIMARY KEY,
			session_id      VARCHAR(64) NOT NULL,
			room_id         VARCHAR(64) NOT NULL,
			game_number     INT NOT NULL,
			round           INT NOT NULL,
			participant_id  VARCHAR(64) NOT NULL,
			kind            VARCHAR(8),
			role_card_id    VARCHAR(64),
			synergy_card_id VARCHAR(64),
			special         VARCHAR(16),
			quality         VARCHAR(16),
			effectiveness   VARCHAR(16),
			alignment       VARCHAR(16),
			base_score      INT NOT NULL,
			final_score     INT NOT NULL,
			defaulted       BOOLEAN NOT NULL DEFAULT FALSE,
			locked_at       TIMESTAMPTZ NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_round_plays_session ON round_plays (session_id, round)`,
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id          BIGSERIAL PRIMARY KEY,
			session_id  VARCHAR(64) NOT NULL UNIQUE,
			room_id     VARCHAR(64) NOT NULL,
			game_number INT NOT NULL,
			status      VARCHAR(16) NOT NULL,
			results     JSONB NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_sessions_room ON game_sessions (room_id, game_number)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring sink schema: %w", err)
		}
	}
	return nil
}

// SaveRoundPlays appends the finalized plays of one round in a single
// transaction.
func (s *PostgresSink) SaveRoundPlays(ctx context.Context, plays []models.RoundPlayRecord) error {
	if len(plays) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO round_plays (
			session_id, room_id, game_number, round, participant_id, kind,
			role_card_id, synergy_card_id, special, quality, effectiveness,
			alignment, base_score, final_score, defaulted, locked_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range plays {
		if _, err := stmt.ExecContext(ctx,
			p.SessionID, p.RoomID, p.GameNumber, p.Round, p.ParticipantID, p.Kind,
			p.RoleCardID, p.SynergyCardID, string(p.Special), p.Quality, p.Effectiveness,
			p.Alignment, p.BaseScore, p.FinalScore, p.Defaulted, p.LockedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveGameSession appends a finished session's final record.
func (s *PostgresSink) SaveGameSession(ctx context.Context, rec models.GameSessionRecord) error {
	results, err := json.Marshal(rec.Results)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO game_sessions (
			session_id, room_id, game_number, status, results, started_at, finished_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.SessionID, rec.RoomID, rec.GameNumber, rec.Status, results, rec.StartedAt, rec.FinishedAt,
	)
	return err
}

// Close shuts the pool down.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}
