package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"tendermatch/internal"
	"tendermatch/internal/catalog"
)

// DB is the SQLite-backed catalog store. Products keep a full JSON payload
// alongside the scalar columns the prefilter queries against.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  vendorId TEXT NOT NULL,
  manufacturer TEXT NOT NULL,
  model TEXT NOT NULL,
  category TEXT NOT NULL,
  status TEXT NOT NULL,
  minCapacity INTEGER NOT NULL DEFAULT 0,
  maxCapacity INTEGER NOT NULL DEFAULT 0,
  paperSupported TEXT,
  raw_json TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_vendor ON products(vendorId);
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category, status);
CREATE INDEX IF NOT EXISTS idx_products_capacity ON products(maxCapacity, minCapacity);

CREATE TABLE IF NOT EXISTS requests (
  id TEXT PRIMARY KEY,
  requesterId TEXT NOT NULL,
  category TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  raw_json TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  requestId TEXT NOT NULL,
  stage TEXT NOT NULL,
  recommendationsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// capacityWindow extracts the prefilter scalars from the category payload.
func capacityWindow(p *internal.Product) (minCap, maxCap int, paper string) {
	switch {
	case p.Photocopier != nil:
		sizes := make([]string, 0, len(p.Photocopier.PaperSupported))
		for _, s := range p.Photocopier.PaperSupported {
			sizes = append(sizes, string(s))
		}
		return p.Photocopier.MinVolume, p.Photocopier.MaxVolume, strings.Join(sizes, ",")
	case p.Telecoms != nil:
		return p.Telecoms.MinUsers, p.Telecoms.MaxUsers, ""
	case p.CCTV != nil:
		return p.CCTV.MinCameras, p.CCTV.MaxCameras, ""
	case p.IT != nil:
		return p.IT.MinUsers, p.IT.MaxUsers, ""
	default:
		return 0, 0, ""
	}
}

func (d *DB) Save(ctx context.Context, p *internal.Product) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product %s: %w", p.ID, err)
	}
	minCap, maxCap, paper := capacityWindow(p)

	_, err = d.conn.ExecContext(ctx, `
INSERT INTO products (id, vendorId, manufacturer, model, category, status, minCapacity, maxCapacity, paperSupported, raw_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  vendorId=excluded.vendorId,
  manufacturer=excluded.manufacturer,
  model=excluded.model,
  category=excluded.category,
  status=excluded.status,
  minCapacity=excluded.minCapacity,
  maxCapacity=excluded.maxCapacity,
  paperSupported=excluded.paperSupported,
  raw_json=excluded.raw_json,
  updatedAt=CURRENT_TIMESTAMP
`, p.ID, p.VendorID, p.Manufacturer, p.Model, string(p.Category), string(p.Status), minCap, maxCap, paper, string(raw))
	return err
}

func (d *DB) Prefilter(ctx context.Context, q catalog.PrefilterQuery) ([]internal.Product, error) {
	status := q.Status
	if status == "" {
		status = internal.StatusActive
	}

	query := `SELECT raw_json FROM products WHERE category = ? AND status = ?`
	args := []any{string(q.Category), string(status)}

	if q.MinCapacity > 0 {
		query += ` AND maxCapacity >= ?`
		args = append(args, q.MinCapacity)
	}
	if q.MaxFloor > 0 {
		query += ` AND minCapacity <= ?`
		args = append(args, q.MaxFloor)
	}
	if q.PaperSize != "" {
		query += ` AND (',' || paperSupported || ',') LIKE ?`
		args = append(args, "%,"+string(q.PaperSize)+",%")
	}
	query += ` ORDER BY maxCapacity ASC`
	if q.MaxCandidates > 0 {
		query += ` LIMIT ?`
		args = append(args, q.MaxCandidates)
	}

	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Product
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var p internal.Product
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode product payload: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) DeleteByID(ctx context.Context, id string) error {
	result, err := d.conn.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (d *DB) CountByVendor(ctx context.Context, vendorID string) (int, error) {
	var n int
	err := d.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE vendorId = ?`, vendorID).Scan(&n)
	return n, err
}

// SaveRequest persists a quote request payload keyed by its id.
func (d *DB) SaveRequest(ctx context.Context, req *internal.QuoteRequest) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request %s: %w", req.ID, err)
	}
	_, err = d.conn.ExecContext(ctx, `
INSERT INTO requests (id, requesterId, category, status, raw_json)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  status=excluded.status,
  raw_json=excluded.raw_json,
  updatedAt=CURRENT_TIMESTAMP
`, req.ID, req.RequesterID, string(req.Category), string(req.Status), string(raw))
	return err
}

func (d *DB) GetRequest(ctx context.Context, id string) (*internal.QuoteRequest, error) {
	var raw string
	err := d.conn.QueryRowContext(ctx, `SELECT raw_json FROM requests WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var req internal.QuoteRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, fmt.Errorf("decode request payload: %w", err)
	}
	return &req, nil
}

// InsertRun records one match run and the recommendations it delivered.
func (d *DB) InsertRun(ctx context.Context, traceID, requestID string, stage internal.RequestStage, recs []internal.Recommendation) error {
	recsJSON, _ := json.Marshal(recs)
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO runs (traceId, requestId, stage, recommendationsJson) VALUES (?, ?, ?, ?)
`, traceID, requestID, string(stage), string(recsJSON))
	return err
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
