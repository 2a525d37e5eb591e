package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "estefy/inmoworker/pkg/errors"
)

const zonapropList = `<html><body>
<div class="postings-container">
  <div data-qa="posting PROPERTY" data-to-posting="/propiedades/depto-palermo-49812345.html"></div>
  <div data-qa="posting PROPERTY">
    <a href="/propiedades/depto-caballito-49855555.html?utm=feed">ver aviso</a>
  </div>
  <div data-qa="posting PROPERTY">
    <a href="/propiedades/depto-caballito-49855555.html?utm=feed">repetido</a>
  </div>
  <div data-qa="posting PROPERTY"></div>
</div>
<a aria-label="Siguiente" href="/departamentos-alquiler-capital-federal-pagina-2.html">Siguiente</a>
</body></html>`

func TestZonapropExtractList(t *testing.T) {
	page, err := NewZonaprop().ExtractList(
		"https://www.zonaprop.com.ar/departamentos-alquiler-capital-federal.html", zonapropList)
	require.NoError(t, err)

	// the fourth card has no link at all, the third repeats the second
	assert.Equal(t, []string{
		"https://www.zonaprop.com.ar/propiedades/depto-palermo-49812345.html",
		"https://www.zonaprop.com.ar/propiedades/depto-caballito-49855555.html?utm=feed",
	}, page.Links)

	assert.Equal(t,
		"https://www.zonaprop.com.ar/departamentos-alquiler-capital-federal-pagina-2.html",
		page.NextURL)
}

const zonapropDetail = `<html><body>
<h1 class="title-property">Departamento en alquiler en Palermo</h1>
<div class="price-value"><span><span>$ 450.000</span></span></div>
<div class="block-expensas"><span>$ 90.000 Expensas</span></div>
<section id="map-section"><h4>Av. Santa Fe 3200</h4></section>
<h2 class="title-location"><span>PALERMO, CAPITAL FEDERAL</span></h2>
<ul class="section-icon-features">
  <li class="icon-feature">45 m² tot.</li>
  <li class="icon-feature">2 amb.</li>
  <li class="icon-feature">1 dorm.</li>
  <li class="icon-feature">1 baño</li>
</ul>
<div id="longDescription"><p>Luminoso depto con balcón</p></div>
</body></html>`

func TestZonapropExtractListing(t *testing.T) {
	url := "https://www.zonaprop.com.ar/propiedades/depto-palermo-49812345.html"
	l, err := NewZonaprop().ExtractListing(url, zonapropDetail)
	require.NoError(t, err)

	assert.Equal(t, url, l.URL)
	assert.Equal(t, "Departamento en alquiler en Palermo", l.Titulo)
	require.NotNil(t, l.Precio)
	assert.Equal(t, float64(450000), *l.Precio)
	assert.Empty(t, l.Moneda)
	require.NotNil(t, l.Expensas)
	assert.Equal(t, float64(90000), *l.Expensas)
	assert.Equal(t, "Av. Santa Fe 3200", l.Direccion)
	assert.Equal(t, "PALERMO, CAPITAL FEDERAL", l.Zona)
	assert.Equal(t, "Luminoso depto con balcón", l.Descripcion)
	require.NotNil(t, l.Superficie)
	assert.Equal(t, float64(45), *l.Superficie)
	require.NotNil(t, l.Ambientes)
	assert.Equal(t, 2, *l.Ambientes)
	require.NotNil(t, l.Dormitorios)
	assert.Equal(t, 1, *l.Dormitorios)
	require.NotNil(t, l.Banos)
	assert.Equal(t, 1, *l.Banos)
	assert.Equal(t, "zonaprop", l.Fuente)
}

func TestZonapropExtractListingInDollars(t *testing.T) {
	html := `<html><body>
	<h1>Depto Caballito</h1>
	<div class="price-value"><span><span>USD 1.200</span></span></div>
	<section id="map-section"><h4>Rosario 600</h4></section>
	</body></html>`

	l, err := NewZonaprop().ExtractListing("https://www.zonaprop.com.ar/x.html", html)
	require.NoError(t, err)
	assert.Equal(t, "USD", l.Moneda)
	require.NotNil(t, l.Precio)
	assert.Equal(t, float64(1200), *l.Precio)
	assert.Nil(t, l.Expensas)
}

const mercadolibreList = `<html><body>
<ol class="ui-search-layout">
  <li class="ui-search-layout__item">
    <a class="ui-search-link" href="https://departamento.mercadolibre.com.ar/MLA-1400000001"></a>
  </li>
  <li class="ui-search-layout__item">
    <a class="ui-search-link" href="https://departamento.mercadolibre.com.ar/MLA-1400000002"></a>
  </li>
</ol>
<li class="andes-pagination__button--next">
  <a href="https://inmuebles.mercadolibre.com.ar/departamentos/alquiler/capital-federal/_Desde_49">Siguiente</a>
</li>
</body></html>`

func TestMercadolibreExtractList(t *testing.T) {
	page, err := NewMercadolibre().ExtractList(
		"https://inmuebles.mercadolibre.com.ar/departamentos/alquiler/capital-federal/", mercadolibreList)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://departamento.mercadolibre.com.ar/MLA-1400000001",
		"https://departamento.mercadolibre.com.ar/MLA-1400000002",
	}, page.Links)
	assert.Equal(t,
		"https://inmuebles.mercadolibre.com.ar/departamentos/alquiler/capital-federal/_Desde_49",
		page.NextURL)
}

const mercadolibreDetail = `<html><body>
<h1 class="ui-pdp-title">Departamento 2 ambientes en Flores</h1>
<span class="andes-money-amount__currency-symbol">$</span>
<span class="andes-money-amount__fraction">380.000</span>
<div class="ui-vip-location"><p>Flores, Capital Federal</p></div>
<div class="ui-pdp-specs__table">
  <div class="ui-pdp-specs__table-row"><th>Superficie total</th><td>40 m²</td></div>
  <div class="ui-pdp-specs__table-row"><th>Ambientes</th><td>2</td></div>
  <div class="ui-pdp-specs__table-row"><th>Baños</th><td>1</td></div>
</div>
<p class="ui-pdp-description__content">Monoambiente amplio, luminoso.</p>
</body></html>`

func TestMercadolibreExtractListing(t *testing.T) {
	url := "https://departamento.mercadolibre.com.ar/MLA-1400000001"
	l, err := NewMercadolibre().ExtractListing(url, mercadolibreDetail)
	require.NoError(t, err)

	assert.Equal(t, "Departamento 2 ambientes en Flores", l.Titulo)
	require.NotNil(t, l.Precio)
	assert.Equal(t, float64(380000), *l.Precio)
	assert.Empty(t, l.Moneda)
	assert.Equal(t, "Flores, Capital Federal", l.Direccion)
	require.NotNil(t, l.Superficie)
	assert.Equal(t, float64(40), *l.Superficie)
	require.NotNil(t, l.Ambientes)
	assert.Equal(t, 2, *l.Ambientes)
	require.NotNil(t, l.Banos)
	assert.Equal(t, 1, *l.Banos)
	assert.Equal(t, "mercadolibre", l.Fuente)
}

func TestMercadolibreSplitLocation(t *testing.T) {
	html := `<html><body>
	<h1 class="ui-pdp-title">PH 3 ambientes</h1>
	<span class="andes-money-amount__fraction">520.000</span>
	<div class="ui-vip-location">
	  <p>Av. Rivadavia 6500</p>
	  <p>Flores, Capital Federal</p>
	</div>
	</body></html>`

	l, err := NewMercadolibre().ExtractListing("https://ml.test/MLA-3", html)
	require.NoError(t, err)
	assert.Equal(t, "Av. Rivadavia 6500", l.Direccion)
	assert.Equal(t, "Flores, Capital Federal", l.Zona)
}

func TestMercadolibreDollarSymbol(t *testing.T) {
	html := `<html><body>
	<h1 class="ui-pdp-title">Monoambiente en Recoleta</h1>
	<span class="andes-money-amount__currency-symbol">U$S</span>
	<span class="andes-money-amount__fraction">850</span>
	</body></html>`

	l, err := NewMercadolibre().ExtractListing("https://ml.test/MLA-2", html)
	require.NoError(t, err)
	assert.Equal(t, "USD", l.Moneda)
	require.NotNil(t, l.Precio)
	assert.Equal(t, float64(850), *l.Precio)
}

func TestExtractListWithoutResults(t *testing.T) {
	page, err := NewZonaprop().ExtractList("https://www.zonaprop.com.ar/x.html",
		"<html><body><div>No encontramos avisos</div></body></html>")
	require.NoError(t, err)
	assert.Empty(t, page.Links)
	assert.Empty(t, page.NextURL)
}

func TestExtractListingWithoutFields(t *testing.T) {
	_, err := NewZonaprop().ExtractListing("https://www.zonaprop.com.ar/x.html",
		"<html><body><div>nada</div></body></html>")
	require.Error(t, err)
	assert.True(t, apperr.IsType(err, apperr.ErrorTypeExtraction))
}

func TestDetectCurrency(t *testing.T) {
	assert.Equal(t, "USD", detectCurrency("USD 1.200"))
	assert.Equal(t, "USD", detectCurrency("U$S 850"))
	assert.Equal(t, "", detectCurrency("$ 450.000"))
	assert.Equal(t, "", detectCurrency(""))
}
