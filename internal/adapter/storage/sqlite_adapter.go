package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/jmoralesv/agrobook/internal/core/domain"
)

// timeLayout is fixed-width UTC so lexical ORDER BY matches time order.
const timeLayout = "2006-01-02 15:04:05.000000000"

type SQLiteAdapter struct {
	db *sql.DB
}

func NewSQLiteAdapter(db *sql.DB) *SQLiteAdapter {
	return &SQLiteAdapter{db: db}
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY under concurrent mutations.
	db.SetMaxOpenConns(1)
	return db, nil
}

// CreateSchema creates the ledger and inventory tables.
func (s *SQLiteAdapter) CreateSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			actor TEXT NOT NULL,
			kind TEXT NOT NULL,
			product TEXT NOT NULL,
			quantity TEXT NOT NULL,
			unit TEXT NOT NULL,
			unit_price TEXT NOT NULL,
			counterparty TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			recorded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_actor ON entries (actor, recorded_at)`,
		`CREATE TABLE IF NOT EXISTS inventory (
			product TEXT PRIMARY KEY,
			quantity TEXT NOT NULL,
			unit TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteAdapter) AppendEntry(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (id, actor, kind, product, quantity, unit, unit_price, counterparty, note, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Actor, string(e.Kind), e.Product, e.Quantity.String(), e.Unit,
		e.UnitPrice.String(), e.Counterparty, e.Note, e.RecordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *SQLiteAdapter) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, actor, kind, product, quantity, unit, unit_price, counterparty, note, recorded_at
		FROM entries WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query entry: %w", err)
	}
	return e, nil
}

func (s *SQLiteAdapter) UpdateEntry(ctx context.Context, e domain.Entry) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET actor = ?, kind = ?, product = ?, quantity = ?, unit = ?, unit_price = ?, counterparty = ?, note = ?, recorded_at = ?
		WHERE id = ?`,
		e.Actor, string(e.Kind), e.Product, e.Quantity.String(), e.Unit,
		e.UnitPrice.String(), e.Counterparty, e.Note, e.RecordedAt.UTC().Format(timeLayout), e.ID,
	)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("update entry %s: no such row", e.ID)
	}
	return nil
}

func (s *SQLiteAdapter) DeleteEntry(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("delete entry %s: no such row", id)
	}
	return nil
}

func (s *SQLiteAdapter) EntriesByActor(ctx context.Context, actor string) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, kind, product, quantity, unit, unit_price, counterparty, note, recorded_at
		FROM entries WHERE actor = ?
		ORDER BY recorded_at DESC, id`, actor)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *SQLiteAdapter) GetInventory(ctx context.Context, product string) (*domain.Inventory, error) {
	var inv domain.Inventory
	var qty string
	err := s.db.QueryRowContext(ctx, `
		SELECT product, quantity, unit FROM inventory WHERE product = ?`, product,
	).Scan(&inv.Product, &qty, &inv.Unit)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	if inv.Quantity, err = decimal.NewFromString(qty); err != nil {
		return nil, fmt.Errorf("decode quantity: %w", err)
	}
	return &inv, nil
}

func (s *SQLiteAdapter) UpsertInventory(ctx context.Context, inv domain.Inventory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory (product, quantity, unit) VALUES (?, ?, ?)
		ON CONFLICT(product) DO UPDATE SET quantity = excluded.quantity, unit = excluded.unit`,
		inv.Product, inv.Quantity.String(), inv.Unit,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

func (s *SQLiteAdapter) ListInventory(ctx context.Context) ([]domain.Inventory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product, quantity, unit FROM inventory ORDER BY product`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var out []domain.Inventory
	for rows.Next() {
		var inv domain.Inventory
		var qty string
		if err := rows.Scan(&inv.Product, &qty, &inv.Unit); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		if inv.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("decode quantity: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.Entry, error) {
	var e domain.Entry
	var kind, qty, price, recordedAt string
	if err := row.Scan(&e.ID, &e.Actor, &kind, &e.Product, &qty, &e.Unit, &price, &e.Counterparty, &e.Note, &recordedAt); err != nil {
		return nil, err
	}
	e.Kind = domain.Kind(kind)

	var err error
	if e.Quantity, err = decimal.NewFromString(qty); err != nil {
		return nil, fmt.Errorf("decode quantity: %w", err)
	}
	if e.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("decode unit price: %w", err)
	}
	if e.RecordedAt, err = time.ParseInLocation(timeLayout, recordedAt, time.UTC); err != nil {
		return nil, fmt.Errorf("decode recorded_at: %w", err)
	}
	return &e, nil
}
