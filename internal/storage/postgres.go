package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/emberline/duelcore/internal/game"
	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/state"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_snapshots (
	match_id   TEXT PRIMARY KEY,
	round      INTEGER NOT NULL,
	turn       INTEGER NOT NULL,
	phase      TEXT NOT NULL,
	over       BOOLEAN NOT NULL,
	checksum   TEXT NOT NULL,
	state      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS card_templates (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	cost          INTEGER NOT NULL,
	attack        INTEGER NOT NULL,
	health        INTEGER NOT NULL,
	card_type     TEXT NOT NULL,
	rules_text    TEXT NOT NULL DEFAULT '',
	reversed_text TEXT NOT NULL DEFAULT '',
	keywords      TEXT[] NOT NULL DEFAULT '{}',
	rarity        TEXT NOT NULL DEFAULT '',
	element       TEXT NOT NULL DEFAULT '',
	tags          TEXT[] NOT NULL DEFAULT '{}'
);
`

// importBatchSize bounds the rows inserted per transaction.
const importBatchSize = 1000

// Postgres keeps snapshots as JSONB rows and serves card templates.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres connects to databaseURL and pings the server.
func NewPostgres(ctx context.Context, databaseURL string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	stats := pool.Stat()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)
	return &Postgres{pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// EnsureSchema creates the tables if they are missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save upserts the snapshot together with its checksum.
func (p *Postgres) Save(ctx context.Context, matchID string, gs state.GameState) error {
	sum, err := game.ComputeChecksum(gs)
	if err != nil {
		return err
	}
	doc, err := json.Marshal(gs)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO match_snapshots (match_id, round, turn, phase, over, checksum, state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (match_id) DO UPDATE SET
			round = EXCLUDED.round,
			turn = EXCLUDED.turn,
			phase = EXCLUDED.phase,
			over = EXCLUDED.over,
			checksum = EXCLUDED.checksum,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`, matchID, gs.Round, gs.Turn, string(gs.Phase), gs.Over, sum.Hash, doc)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", matchID, err)
	}
	return nil
}

// Load reads the snapshot and verifies it against the stored checksum.
func (p *Postgres) Load(ctx context.Context, matchID string) (state.GameState, error) {
	var (
		doc      []byte
		checksum string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT state, checksum FROM match_snapshots WHERE match_id = $1`, matchID,
	).Scan(&doc, &checksum)
	if errors.Is(err, pgx.ErrNoRows) {
		return state.GameState{}, fmt.Errorf("%w: %s", ErrNotFound, matchID)
	}
	if err != nil {
		return state.GameState{}, fmt.Errorf("failed to load snapshot %s: %w", matchID, err)
	}

	var gs state.GameState
	if err := json.Unmarshal(doc, &gs); err != nil {
		return state.GameState{}, fmt.Errorf("failed to decode snapshot %s: %w", matchID, err)
	}
	ok, err := game.VerifyChecksum(gs, game.Checksum{Hash: checksum, Version: game.ChecksumVersion})
	if err != nil {
		return state.GameState{}, err
	}
	if !ok {
		return state.GameState{}, fmt.Errorf("snapshot %s failed checksum verification", matchID)
	}
	return gs, nil
}

// Delete removes a snapshot.
func (p *Postgres) Delete(ctx context.Context, matchID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM match_snapshots WHERE match_id = $1`, matchID); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", matchID, err)
	}
	return nil
}

// ImportTemplates upserts templates in batches, one transaction per batch.
// It returns how many rows were written.
func (p *Postgres) ImportTemplates(ctx context.Context, templates []cards.Template) (int, error) {
	imported := 0
	for i := 0; i < len(templates); i += importBatchSize {
		end := min(i+importBatchSize, len(templates))
		batch := templates[i:end]

		tx, err := p.pool.Begin(ctx)
		if err != nil {
			return imported, fmt.Errorf("failed to begin transaction: %w", err)
		}
		for _, t := range batch {
			_, err := tx.Exec(ctx, `
				INSERT INTO card_templates (
					id, name, cost, attack, health, card_type,
					rules_text, reversed_text, keywords, rarity, element, tags
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					cost = EXCLUDED.cost,
					attack = EXCLUDED.attack,
					health = EXCLUDED.health,
					card_type = EXCLUDED.card_type,
					rules_text = EXCLUDED.rules_text,
					reversed_text = EXCLUDED.reversed_text,
					keywords = EXCLUDED.keywords,
					rarity = EXCLUDED.rarity,
					element = EXCLUDED.element,
					tags = EXCLUDED.tags
			`,
				t.ID, t.Name, t.Cost, t.Attack, t.Health, string(t.Type),
				t.Text, t.ReversedText, nonNil(t.Keywords), t.Rarity, t.Element, nonNil(t.Tags),
			)
			if err != nil {
				_ = tx.Rollback(ctx)
				return imported, fmt.Errorf("failed to insert template %s: %w", t.ID, err)
			}
		}
		if err := tx.Commit(ctx); err != nil {
			return imported, fmt.Errorf("failed to commit batch: %w", err)
		}
		imported += len(batch)
		p.logger.Info("imported template batch",
			zap.Int("batch_size", len(batch)),
			zap.Int("imported", imported),
			zap.Int("total", len(templates)),
		)
	}
	return imported, nil
}

// LoadTemplates reads every stored template.
func (p *Postgres) LoadTemplates(ctx context.Context) (cards.Set, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, cost, attack, health, card_type,
		       rules_text, reversed_text, keywords, rarity, element, tags
		FROM card_templates ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	set := make(cards.Set)
	for rows.Next() {
		var (
			t        cards.Template
			cardType string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Cost, &t.Attack, &t.Health, &cardType,
			&t.Text, &t.ReversedText, &t.Keywords, &t.Rarity, &t.Element, &t.Tags); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		t.Type = cards.Type(cardType)
		set[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}
	return set, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
