package pipeline

import (
	"database/sql"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS propiedades (
	url TEXT PRIMARY KEY,
	titulo TEXT,
	precio REAL,
	moneda TEXT,
	moneda_original TEXT,
	precio_original REAL,
	expensas REAL,
	precio_total REAL,
	direccion TEXT,
	zona TEXT,
	superficie REAL,
	ambientes INTEGER,
	dormitorios INTEGER,
	banos INTEGER,
	descripcion TEXT,
	fecha_extraccion TEXT,
	fuente TEXT
)`

const upsertSQL = `
INSERT OR REPLACE INTO propiedades (
	url, titulo, precio, moneda, moneda_original, precio_original,
	expensas, precio_total, direccion, zona, superficie,
	ambientes, dormitorios, banos, descripcion, fecha_extraccion, fuente
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteSink upserts listings keyed by URL, so re-running a crawl refreshes
// prices instead of duplicating rows.
type SQLiteSink struct {
	mu     sync.Mutex
	db     *sql.DB
	upsert *sql.Stmt
}

// NewSQLiteSink opens (or creates) the database at path and prepares the
// propiedades table.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}
	stmt, err := db.Prepare(upsertSQL)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteSink{db: db, upsert: stmt}, nil
}

// Name implements Sink
func (s *SQLiteSink) Name() string { return "sqlite" }

// Write upserts one listing.
func (s *SQLiteSink) Write(l *Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.upsert.Exec(
		l.URL,
		nullString(l.Titulo),
		nullFloat(l.Precio),
		nullString(l.Moneda),
		nullString(l.MonedaOriginal),
		nullFloat(l.PrecioOriginal),
		nullFloat(l.Expensas),
		nullFloat(l.PrecioTotal),
		nullString(l.Direccion),
		nullString(l.Zona),
		nullFloat(l.Superficie),
		nullInt(l.Ambientes),
		nullInt(l.Dormitorios),
		nullInt(l.Banos),
		nullString(l.Descripcion),
		l.FechaExtraccion,
		l.Fuente,
	)
	return err
}

// Flush is a no-op, every Write is already committed.
func (s *SQLiteSink) Flush() error { return nil }

// Close releases the prepared statement and the database handle.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsert.Close()
	return s.db.Close()
}

// Count returns how many rows the propiedades table holds.
func (s *SQLiteSink) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM propiedades").Scan(&n)
	return n, err
}

func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
