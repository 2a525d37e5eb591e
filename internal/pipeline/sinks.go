package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Sink persists processed listings. Implementations buffer internally and
// must tolerate Close after a run with zero listings.
type Sink interface {
	Name() string
	Write(*Listing) error
	Flush() error
	Close() error
}

// OutputPath builds the per-run output file name for one source.
func OutputPath(dir, source, ext string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_propiedades_%s.%s", source, t.Format("20060102_150405"), ext))
}

// JSONSink streams listings into a JSON array. The file is valid JSON after
// Close even when nothing was written.
type JSONSink struct {
	mu    sync.Mutex
	f     *os.File
	w     *bufio.Writer
	first bool
}

// NewJSONSink creates path and writes the array opener.
func NewJSONSink(path string) (*JSONSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString("[\n"); err != nil {
		f.Close()
		return nil, err
	}
	return &JSONSink{f: f, w: w, first: true}, nil
}

// Name implements Sink
func (s *JSONSink) Name() string { return "json" }

// Write appends one listing to the array.
func (s *JSONSink) Write(l *Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	if !s.first {
		if _, err := s.w.WriteString(",\n"); err != nil {
			return err
		}
	}
	s.first = false
	_, err = s.w.Write(data)
	return err
}

// Flush pushes buffered bytes to disk.
func (s *JSONSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}

// Close terminates the array and closes the file.
func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.WriteString("\n]"); err != nil {
		s.f.Close()
		return err
	}
	if err := s.w.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// csvColumns is the fixed header; every row has exactly these fields.
var csvColumns = []string{
	"url", "titulo", "precio", "moneda", "moneda_original", "precio_original",
	"expensas", "precio_total", "direccion", "zona", "superficie",
	"ambientes", "dormitorios", "banos", "descripcion", "fecha_extraccion", "fuente",
}

// CSVSink writes listings as rows under a fixed header.
type CSVSink struct {
	mu sync.Mutex
	f  *os.File
	w  *csv.Writer
}

// NewCSVSink creates path and writes the header row.
func NewCSVSink(path string) (*CSVSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		f.Close()
		return nil, err
	}
	return &CSVSink{f: f, w: w}, nil
}

// Name implements Sink
func (s *CSVSink) Name() string { return "csv" }

// Write appends one listing row.
func (s *CSVSink) Write(l *Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := []string{
		l.URL,
		l.Titulo,
		formatFloat(l.Precio),
		l.Moneda,
		l.MonedaOriginal,
		formatFloat(l.PrecioOriginal),
		formatFloat(l.Expensas),
		formatFloat(l.PrecioTotal),
		l.Direccion,
		l.Zona,
		formatFloat(l.Superficie),
		formatInt(l.Ambientes),
		formatInt(l.Dormitorios),
		formatInt(l.Banos),
		l.Descripcion,
		l.FechaExtraccion,
		l.Fuente,
	}
	return s.w.Write(row)
}

// Flush pushes buffered rows to disk.
func (s *CSVSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
