package pipeline

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"estefy/inmoworker/helpers"
	"estefy/inmoworker/logger"
	apperr "estefy/inmoworker/pkg/errors"
)

// Options tunes the processing stages.
type Options struct {
	// USDThreshold: a price below this is assumed to be quoted in dollars.
	USDThreshold float64
	// ExchangeRate converts an assumed-dollar price to pesos.
	ExchangeRate float64
	// DedupSize bounds the seen-keys set.
	DedupSize int
	// FlushEvery forces a sink flush after this many persisted listings.
	FlushEvery int
}

// Stats counts what happened to the listings of one run.
type Stats struct {
	Received   int
	Dropped    int
	Duplicates int
	Persisted  int
}

// Pipeline validates, cleans, normalizes and deduplicates listings before
// handing them to the sinks. It is not safe for concurrent use; each crawl
// owns its own pipeline.
type Pipeline struct {
	opts  Options
	seen  *lru.Cache[string, struct{}]
	sinks []Sink
	stats Stats
	now   func() time.Time
	log   zerolog.Logger
}

// New builds a pipeline writing to the given sinks.
func New(opts Options, sinks ...Sink) (*Pipeline, error) {
	if opts.USDThreshold <= 0 {
		opts.USDThreshold = 5000
	}
	if opts.ExchangeRate <= 0 {
		opts.ExchangeRate = 1000
	}
	if opts.DedupSize <= 0 {
		opts.DedupSize = 10000
	}
	seen, err := lru.New[string, struct{}](opts.DedupSize)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		opts:  opts,
		seen:  seen,
		sinks: sinks,
		now:   time.Now,
		log:   logger.ForComponent("pipeline"),
	}, nil
}

// Process runs one listing through every stage. It returns true when the
// listing reached the sinks; drops and duplicates return false with a nil
// error. Sink failures surface as persistence errors.
func (p *Pipeline) Process(l *Listing) (bool, error) {
	p.stats.Received++

	if !p.validate(l) {
		p.stats.Dropped++
		p.log.Debug().
			Err(apperr.New(apperr.ErrorTypeValidation, l.Fuente, "listing has neither price nor address", nil)).
			Str("url", l.URL).
			Msg("dropped listing")
		return false, nil
	}

	p.clean(l)
	p.normalizeCurrency(l)

	key := l.Key()
	if _, dup := p.seen.Get(key); dup {
		p.stats.Duplicates++
		return false, nil
	}
	p.seen.Add(key, struct{}{})

	for _, s := range p.sinks {
		if err := s.Write(l); err != nil {
			return false, apperr.NewPersistence(s.Name(), "write failed", err)
		}
	}
	p.stats.Persisted++

	if p.opts.FlushEvery > 0 && p.stats.Persisted%p.opts.FlushEvery == 0 {
		if err := p.Flush(); err != nil {
			return false, err
		}
	}
	return true, nil
}

// validate keeps a listing only when it has a price or an address to key on.
func (p *Pipeline) validate(l *Listing) bool {
	return l.Precio != nil || l.Direccion != ""
}

// clean normalizes text fields and derives the total price.
func (p *Pipeline) clean(l *Listing) {
	l.Titulo = helpers.CleanText(l.Titulo)
	l.Direccion = helpers.CleanText(l.Direccion)
	l.Descripcion = helpers.CleanText(l.Descripcion)
	l.Zona = helpers.TitleCase(helpers.CleanText(l.Zona))
	l.URL = helpers.StripQuery(l.URL)

	if l.Precio != nil {
		total := *l.Precio
		if l.Expensas != nil {
			total += *l.Expensas
		}
		l.PrecioTotal = Float(total)
	}

	l.Stamp(p.now())
}

// normalizeCurrency converts suspiciously low prices, which on these portals
// are dollar amounts, into pesos while preserving the original quote.
func (p *Pipeline) normalizeCurrency(l *Listing) {
	if l.Precio == nil {
		return
	}

	if l.Moneda == "" {
		if *l.Precio < p.opts.USDThreshold {
			l.Moneda = "USD"
		} else {
			l.Moneda = "ARS"
		}
	}
	if l.Moneda != "USD" {
		return
	}

	l.MonedaOriginal = "USD"
	l.PrecioOriginal = Float(*l.Precio)
	l.Precio = Float(*l.Precio * p.opts.ExchangeRate)
	l.Moneda = "ARS"

	total := *l.Precio
	if l.Expensas != nil {
		total += *l.Expensas
	}
	l.PrecioTotal = Float(total)
}

// Stats returns the counters accumulated so far.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Flush forces every sink to persist buffered listings.
func (p *Pipeline) Flush() error {
	for _, s := range p.sinks {
		if err := s.Flush(); err != nil {
			return apperr.NewPersistence(s.Name(), "flush failed", err)
		}
	}
	return nil
}

// Close finalizes every sink. The first error is returned but all sinks are
// closed regardless.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = apperr.NewPersistence(s.Name(), "close failed", err)
		}
	}
	return firstErr
}
