package crawler

import (
	"estefy/inmoworker/config"
	"estefy/inmoworker/internal/extractor"
)

// BuildCrawlers wires one crawler per enabled source, all sharing the same
// fetcher.
func BuildCrawlers(cfg *config.Config, fetcher Fetcher) []*Crawler {
	base := Config{
		MaxPages:     cfg.MaxPages,
		ItemDelayMin: cfg.ItemDelayMin,
		ItemDelayMax: cfg.ItemDelayMax,
		PageDelayMin: cfg.PageDelayMin,
		PageDelayMax: cfg.PageDelayMax,
	}

	var crawlers []*Crawler
	for _, source := range cfg.EnabledSources {
		c := base
		switch source {
		case "zonaprop":
			c.StartURL = cfg.ZonapropURL
			crawlers = append(crawlers, New(fetcher, extractor.NewZonaprop(), c))
		case "mercadolibre":
			c.StartURL = cfg.MercadolibreURL
			crawlers = append(crawlers, New(fetcher, extractor.NewMercadolibre(), c))
		}
	}
	return crawlers
}
