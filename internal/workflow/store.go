package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store persists workflow definitions and activation flags in PostgreSQL.
// This is the workflow-store collaborator surface: the readiness core only
// ever reads what the catalog exposes.
type Store struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewStore connects a pgx pool and verifies the connection.
func NewStore(dsn string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logger.Info("PostgreSQL connected")
	return &Store{db: pool, logger: logger}, nil
}

// Migrate reads and executes all .up.sql files from the migrations directory.
func (s *Store) Migrate(ctx context.Context, migrationsDir string) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(migrationsDir, f))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.db.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		s.logger.Info("Migration applied", zap.String("file", f))
	}
	return nil
}

// SaveWorkflow upserts a workflow definition and its activation flag.
func (s *Store) SaveWorkflow(ctx context.Context, def Definition, activated bool) error {
	steps, err := json.Marshal(def.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps for %s: %w", def.ID, err)
	}
	now := time.Now()
	_, err = s.db.Exec(ctx, `
		INSERT INTO workflows (id, name, description, category, is_custom, steps, activated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			is_custom = EXCLUDED.is_custom,
			steps = EXCLUDED.steps,
			activated = EXCLUDED.activated,
			updated_at = EXCLUDED.updated_at`,
		def.ID, def.Name, def.Description, def.Category, def.IsCustom, steps, activated, now,
	)
	if err != nil {
		return fmt.Errorf("save workflow %s: %w", def.ID, err)
	}
	return nil
}

// SetActivated updates only the activation flag.
func (s *Store) SetActivated(ctx context.Context, id string, activated bool) error {
	_, err := s.db.Exec(ctx,
		`UPDATE workflows SET activated = $1, updated_at = NOW() WHERE id = $2`,
		activated, id)
	if err != nil {
		return fmt.Errorf("set activated %s: %w", id, err)
	}
	return nil
}

// ListWorkflows returns all persisted workflows with their activation flags.
func (s *Store) ListWorkflows(ctx context.Context) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, COALESCE(description,''), COALESCE(category,''), is_custom, steps, activated
		FROM workflows ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var steps []byte
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Category,
			&it.IsCustom, &steps, &it.Activated); err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		if err := json.Unmarshal(steps, &it.Steps); err != nil {
			return nil, fmt.Errorf("decode steps for %s: %w", it.ID, err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.db.Close()
}
