package pipeline

import (
	"fmt"
	"time"
)

// Listing is one property ad. Numeric fields are pointers so an unparseable
// value stays absent instead of turning into a zero.
type Listing struct {
	URL             string   `json:"url"`
	Titulo          string   `json:"titulo,omitempty"`
	Precio          *float64 `json:"precio,omitempty"`
	Moneda          string   `json:"moneda,omitempty"`
	MonedaOriginal  string   `json:"moneda_original,omitempty"`
	PrecioOriginal  *float64 `json:"precio_original,omitempty"`
	Expensas        *float64 `json:"expensas,omitempty"`
	PrecioTotal     *float64 `json:"precio_total,omitempty"`
	Direccion       string   `json:"direccion,omitempty"`
	Zona            string   `json:"zona,omitempty"`
	Superficie      *float64 `json:"superficie,omitempty"`
	Ambientes       *int     `json:"ambientes,omitempty"`
	Dormitorios     *int     `json:"dormitorios,omitempty"`
	Banos           *int     `json:"banos,omitempty"`
	Descripcion     string   `json:"descripcion,omitempty"`
	FechaExtraccion string   `json:"fecha_extraccion,omitempty"`
	Fuente          string   `json:"fuente"`
}

// Key returns the deduplication key: the listing URL, or the address plus
// price when the ad carries no link.
func (l *Listing) Key() string {
	if l.URL != "" {
		return l.URL
	}
	precio := float64(0)
	if l.Precio != nil {
		precio = *l.Precio
	}
	return fmt.Sprintf("%s|%.2f", l.Direccion, precio)
}

// Stamp records the extraction time in RFC 3339.
func (l *Listing) Stamp(t time.Time) {
	l.FechaExtraccion = t.Format(time.RFC3339)
}

// Float returns a pointer to v, for building listings in one expression.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
