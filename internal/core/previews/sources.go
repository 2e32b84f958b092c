package previews

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const (
	SourceQuestStore = "queststore"
	SourceExperience = "experience"

	DefaultQuestStoreOrigin = "https://www.oculus.com"
	DefaultExperienceOrigin = "https://www.meta.com"

	crawlerUserAgent = "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)"
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "es-AR,es;q=0.9,en;q=0.8"
)

// Source is the fetch strategy for one family of listing hosts.
type Source struct {
	Name    string
	Origin  string
	Domains []string
	// Headers are sent with every request; Referer, Accept-Language and
	// cache directives are added on top.
	Headers http.Header
	// TolerateStatus lists non-2xx statuses whose bodies are still parsed.
	TolerateStatus []int
	Parser         Parser
}

// Matches reports whether host belongs to the source's domain family.
func (s Source) Matches(host string) bool {
	return matchesDomain(host, s.Domains...)
}

// Tolerates reports whether the body of a response with status is still worth parsing.
func (s Source) Tolerates(status int) bool {
	for _, st := range s.TolerateStatus {
		if st == status {
			return true
		}
	}

	return false
}

// requestHeaders returns a fresh header set for one outbound request.
func (s Source) requestHeaders() http.Header {
	h := s.Headers.Clone()
	if h == nil {
		h = make(http.Header)
	}

	if h.Get("Accept") == "" {
		h.Set("Accept", acceptHTML)
	}

	h.Set("Accept-Language", acceptLanguage)
	h.Set("Referer", strings.TrimSuffix(s.Origin, "/")+"/")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")

	return h
}

// NewQuestStoreSource returns the strategy for the store's crawler-facing pages.
func NewQuestStoreSource(origin string, logger *zerolog.Logger) Source {
	origin = coalesce(strings.TrimSuffix(origin, "/"), DefaultQuestStoreOrigin)

	return Source{
		Name:           SourceQuestStore,
		Origin:         origin,
		Domains:        []string{"oculus.com"},
		Headers:        http.Header{"User-Agent": {crawlerUserAgent}},
		TolerateStatus: []int{http.StatusBadRequest},
		Parser:         NewMetaParser(origin, logger),
	}
}

// NewExperienceSource returns the strategy for the experiences catalog pages.
func NewExperienceSource(origin string, logger *zerolog.Logger) Source {
	origin = coalesce(strings.TrimSuffix(origin, "/"), DefaultExperienceOrigin)

	return Source{
		Name:    SourceExperience,
		Origin:  origin,
		Domains: []string{"meta.com"},
		Headers: http.Header{"User-Agent": {browserUserAgent}},
		Parser:  NewDOMParser(origin, logger),
	}
}

// Sources selects a strategy by target host.
type Sources struct {
	fallback Source
	others   []Source
}

// NewSources registers the strategies. Hosts no strategy claims use fallback.
func NewSources(fallback Source, others ...Source) *Sources {
	return &Sources{fallback: fallback, others: others}
}

// DefaultSources returns the queststore and experience strategies, with
// queststore as the fallback.
func DefaultSources(questOrigin, experienceOrigin string, logger *zerolog.Logger) *Sources {
	return NewSources(
		NewQuestStoreSource(questOrigin, logger),
		NewExperienceSource(experienceOrigin, logger),
	)
}

// For returns the strategy for host.
func (s *Sources) For(host string) Source {
	for _, src := range s.others {
		if src.Matches(host) {
			return src
		}
	}

	return s.fallback
}

// DefaultOrigin is the origin relative targets are joined to.
func (s *Sources) DefaultOrigin() string {
	return s.fallback.Origin
}
