package extractor

import (
	"github.com/PuerkitoBio/goquery"

	"estefy/inmoworker/helpers"
	"estefy/inmoworker/internal/pipeline"
)

// NewMercadolibre builds the extractor for Mercadolibre Inmuebles. The
// andes-* and ui-pdp-* selectors are the current markup, ui-search-* and
// price-tag-* cover older revisions still served on some categories.
func NewMercadolibre() *Extractor {
	return New("mercadolibre", Selectors{
		Card:     `ol.ui-search-layout li.ui-search-layout__item, div.ui-search-results div[class*="ui-search-result__wrapper"]`,
		Link:     `a.ui-search-result__content, a.ui-search-link, a.poly-component__title`,
		NextPage: `li.andes-pagination__button--next a, a.andes-pagination__link[title="Siguiente"]`,

		Titulo:      `h1.ui-pdp-title, h1`,
		Precio:      `span.andes-money-amount__fraction, span.price-tag-fraction`,
		Moneda:      `span.andes-money-amount__currency-symbol, span.price-tag-symbol`,
		Direccion:   `div.ui-vip-location p, div[class*="location"] p, h3[class*="location"]`,
		Zona:        `div.ui-vip-location p, span[class*="location"]`,
		Descripcion: `p.ui-pdp-description__content, div[class*="description"] p`,
		Features:    `div.ui-vip-highlighted-specs__specs-item, div.ui-pdp-specs__table div.ui-pdp-specs__table-row, div.ui-pdp-highlighted-specs-res p`,
	}, mercadolibreLocation)
}

// mercadolibreLocation splits the location block when the portal renders the
// street and the neighborhood as separate lines. The selector table can only
// take the first line, which leaves both fields with the street.
func mercadolibreLocation(doc *goquery.Document, listing *pipeline.Listing) {
	lines := doc.Find("div.ui-vip-location p")
	if lines.Length() > 1 {
		listing.Zona = helpers.CleanText(lines.Eq(1).Text())
	}
}
