package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"estefy/inmoworker/helpers"
	"estefy/inmoworker/internal/pipeline"
	"estefy/inmoworker/logger"
	apperr "estefy/inmoworker/pkg/errors"
)

// Selectors configures how one portal is read. Every selector may be a
// comma-separated fallback chain; empty selectors disable that field.
type Selectors struct {
	// list page
	Card     string // one ad card
	Link     string // anchor inside the card
	NextPage string // anchor pointing at the next results page

	// detail page
	Titulo      string
	Precio      string
	Moneda      string // currency symbol next to the price
	Expensas    string
	Direccion   string
	Zona        string
	Descripcion string
	Features    string // short spec texts such as "45 m²" or "2 amb."
}

// DetailHandler runs after the generic detail extraction, for portal quirks
// the selector table cannot express.
type DetailHandler func(doc *goquery.Document, listing *pipeline.Listing)

// ListPage is what a results page yields: the ads to expand and where to go
// next.
type ListPage struct {
	Links   []string
	NextURL string
}

// Extractor reads one portal using a per-portal selector table plus optional
// custom handlers.
type Extractor struct {
	source   string
	sel      Selectors
	handlers []DetailHandler
	log      zerolog.Logger
}

// New builds an extractor for one portal.
func New(source string, sel Selectors, handlers ...DetailHandler) *Extractor {
	return &Extractor{
		source:   source,
		sel:      sel,
		handlers: handlers,
		log:      logger.ForSource(source),
	}
}

// Source returns the portal name this extractor reads.
func (e *Extractor) Source() string {
	return e.source
}

// ExtractList pulls the item links and the next-page link from a results
// page. Links are resolved against pageURL and deduplicated in page order.
func (e *Extractor) ExtractList(pageURL, html string) (*ListPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperr.NewExtraction(e.source, pageURL, "unparseable document")
	}

	page := &ListPage{}
	seen := map[string]bool{}

	doc.Find(e.sel.Card).Each(func(_ int, card *goquery.Selection) {
		link := e.cardLink(card)
		if link == "" {
			return
		}
		link = helpers.ResolveURL(pageURL, link)
		if !seen[link] {
			seen[link] = true
			page.Links = append(page.Links, link)
		}
	})

	if e.sel.NextPage != "" {
		if href, ok := doc.Find(e.sel.NextPage).First().Attr("href"); ok && href != "" {
			page.NextURL = helpers.ResolveURL(pageURL, href)
		}
	}

	e.log.Debug().
		Str("page", pageURL).
		Int("links", len(page.Links)).
		Bool("has_next", page.NextURL != "").
		Msg("list page extracted")

	return page, nil
}

// cardLink finds the detail URL of one card, falling back to the card's own
// data-to-posting attribute used by some Zonaprop revisions.
func (e *Extractor) cardLink(card *goquery.Selection) string {
	if e.sel.Link != "" {
		if href, ok := card.Find(e.sel.Link).First().Attr("href"); ok && href != "" {
			return href
		}
	}
	if path, ok := card.Attr("data-to-posting"); ok && path != "" {
		return path
	}
	return ""
}

// ExtractListing parses one detail page into a listing. A page where neither
// title, price nor address can be found is an extraction error.
func (e *Extractor) ExtractListing(url, html string) (*pipeline.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperr.NewExtraction(e.source, url, "unparseable document")
	}

	listing := &pipeline.Listing{URL: url, Fuente: e.source}

	listing.Titulo = e.text(doc, e.sel.Titulo)
	listing.Direccion = e.text(doc, e.sel.Direccion)
	listing.Zona = e.text(doc, e.sel.Zona)
	listing.Descripcion = e.text(doc, e.sel.Descripcion)

	precioText := e.text(doc, e.sel.Precio)
	if precio, ok := helpers.ParseNumber(precioText); ok {
		listing.Precio = pipeline.Float(precio)
	}
	listing.Moneda = detectCurrency(precioText + " " + e.text(doc, e.sel.Moneda))

	if expensas, ok := helpers.ParseNumber(e.text(doc, e.sel.Expensas)); ok {
		listing.Expensas = pipeline.Float(expensas)
	}

	if e.sel.Features != "" {
		doc.Find(e.sel.Features).Each(func(_ int, s *goquery.Selection) {
			applyFeature(helpers.CleanText(s.Text()), listing)
		})
	}

	for _, h := range e.handlers {
		h(doc, listing)
	}

	if listing.Titulo == "" && listing.Precio == nil && listing.Direccion == "" {
		return nil, apperr.NewExtraction(e.source, url, "no recognizable fields")
	}
	return listing, nil
}

func (e *Extractor) text(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return helpers.CleanText(doc.Find(selector).First().Text())
}

// detectCurrency recognizes an explicit dollar marker. An empty result means
// the currency must be inferred downstream from the amount.
func detectCurrency(s string) string {
	upper := strings.ToUpper(s)
	if strings.Contains(upper, "USD") || strings.Contains(upper, "U$S") || strings.Contains(upper, "U$D") {
		return "USD"
	}
	return ""
}

// applyFeature maps one short spec text onto the listing's numeric fields,
// first match wins per field.
func applyFeature(text string, listing *pipeline.Listing) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "m²") || strings.Contains(lower, "m2"):
		if listing.Superficie == nil {
			if v, ok := helpers.ParseNumber(text); ok {
				listing.Superficie = pipeline.Float(v)
			}
		}
	case strings.Contains(lower, "amb"):
		if listing.Ambientes == nil {
			if v, ok := helpers.ParseInt(text); ok {
				listing.Ambientes = pipeline.Int(v)
			}
		}
	case strings.Contains(lower, "dorm") || strings.Contains(lower, "habitac"):
		if listing.Dormitorios == nil {
			if v, ok := helpers.ParseInt(text); ok {
				listing.Dormitorios = pipeline.Int(v)
			}
		}
	case strings.Contains(lower, "baño"):
		if listing.Banos == nil {
			if v, ok := helpers.ParseInt(text); ok {
				listing.Banos = pipeline.Int(v)
			}
		}
	}
}
