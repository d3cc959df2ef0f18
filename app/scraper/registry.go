package scraper

import (
	"net/http"
)

// Registry maps each supported platform to its scraper.
type Registry struct {
	scrapers map[Platform]Scraper
}

func NewRegistry(scrapers ...Scraper) *Registry {
	r := &Registry{scrapers: make(map[Platform]Scraper, len(scrapers))}
	for _, s := range scrapers {
		r.scrapers[s.Platform()] = s
	}
	return r
}

// NewDefaultRegistry wires the Instagram and TikTok scrapers with their own fetchers.
func NewDefaultRegistry(client *http.Client, settings *Settings, base PlatformSettings) *Registry {
	return NewRegistry(
		NewInstagramScraper(NewFetcher(client, settings.For(PlatformInstagram, base))),
		NewTikTokScraper(NewFetcher(client, settings.For(PlatformTikTok, base))),
	)
}

func (r *Registry) Get(p Platform) (Scraper, bool) {
	s, ok := r.scrapers[p]
	return s, ok
}
