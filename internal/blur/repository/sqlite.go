package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bodyshop-gallery/internal/blur/models"
	"bodyshop-gallery/internal/common/logging"
)

// ErrNotFound is returned when no zone set exists for a key.
var ErrNotFound = errors.New("zone set not found")

// ============================================================
// SQLite Repository
// ============================================================

// Repository хранит наборы зон размытия: один JSON-блоб на ключ изображения.
type Repository struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

func New(db *sql.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, now: time.Now, logger: logging.OrNop(logger)}
}

// Init применяет миграции.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	if err := r.runMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// SaveZones replaces the zone set stored under key. An empty slice removes
// the entry.
func (r *Repository) SaveZones(ctx context.Context, key string, zones []models.Zone) error {
	if len(zones) == 0 {
		err := r.DeleteZones(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return r.upsert(ctx, r.db, key, zones)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *Repository) upsert(ctx context.Context, db execer, key string, zones []models.Zone) error {
	data, err := json.Marshal(zones)
	if err != nil {
		return fmt.Errorf("encode zones: %w", err)
	}
	_, err = db.ExecContext(ctx, `
        INSERT INTO blur_zone_sets (image_key, zones, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(image_key) DO UPDATE SET zones = excluded.zones, updated_at = excluded.updated_at
    `, key, string(data), r.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save zones: %w", err)
	}
	return nil
}

// LoadZones returns the sanitized zones for key, or nil when none are stored.
func (r *Repository) LoadZones(ctx context.Context, key string) ([]models.Zone, error) {
	row := r.db.QueryRowContext(ctx, `SELECT zones FROM blur_zone_sets WHERE image_key = ?`, key)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	zones, err := models.DecodeZones([]byte(data), r.now())
	if err != nil {
		r.logger.Warn(logging.EventZonesDropped, "key", key, "error", err)
		return nil, nil
	}
	return zones, nil
}

// LoadAll returns every stored zone set. Corrupt blobs are skipped.
func (r *Repository) LoadAll(ctx context.Context) (models.ZoneSet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT image_key, zones FROM blur_zone_sets ORDER BY image_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := models.ZoneSet{}
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, err
		}
		zones, err := models.DecodeZones([]byte(data), r.now())
		if err != nil {
			r.logger.Warn(logging.EventZonesDropped, "key", key, "error", err)
			continue
		}
		if len(zones) > 0 {
			set[key] = zones
		}
	}
	return set, rows.Err()
}

func (r *Repository) DeleteZones(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blur_zone_sets WHERE image_key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete zones: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================
// Blob import / export
// ============================================================

// ImportBlob loads a whole key -> zones JSON object in one transaction.
// rekey, when set, maps each stored key to its canonical form; sets that
// collapse onto the same key are concatenated. Entries are merged over
// existing data key by key. It returns the number of keys written.
func (r *Repository) ImportBlob(ctx context.Context, data []byte, rekey func(string) (string, error)) (int, error) {
	incoming, err := models.DecodeZoneSet(data, r.now())
	if err != nil {
		return 0, err
	}

	merged := models.ZoneSet{}
	for key, zones := range incoming {
		if rekey != nil {
			canonical, err := rekey(key)
			if err != nil {
				r.logger.Warn(logging.EventZonesDropped, "key", key, "error", err)
				continue
			}
			key = canonical
		}
		merged[key] = append(merged[key], zones...)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for key, zones := range merged {
		if err := r.upsert(ctx, tx, key, zones); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(merged), nil
}

// ExportBlob returns every zone set as a single JSON object.
func (r *Repository) ExportBlob(ctx context.Context) ([]byte, error) {
	set, err := r.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(set, "", "  ")
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
