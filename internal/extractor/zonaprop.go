package extractor

// NewZonaprop builds the extractor for Zonaprop. List cards carry data-qa
// attributes; detail selectors mirror the aviso page. The class-based
// alternatives cover older page revisions.
func NewZonaprop() *Extractor {
	return New("zonaprop", Selectors{
		Card:     `div[data-qa="posting PROPERTY"], div[class*="postingCardLayout-module__posting-card-layout"]`,
		Link:     "a",
		NextPage: `a[aria-label="Siguiente"], a[data-qa="PAGING_NEXT"]`,

		Titulo:      `h1.title-property, h1`,
		Precio:      `div.price-value span span, div[data-qa="PRICE_CONTAINER"], div.price-items span`,
		Expensas:    `div.block-expensas span, span[data-qa="expensas"], div.expensas`,
		Direccion:   `section#map-section h4, div.section-location-property h4, h4[class*="address"]`,
		Zona:        `h2[class*="title-location"] span, h2.title-location`,
		Descripcion: `div#longDescription p, div[class*="section-description"] p`,
		Features:    `ul[class*="section-icon-features"] li, li.icon-feature`,
	})
}
