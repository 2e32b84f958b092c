package previews

import (
	"github.com/rs/zerolog"
)

var (
	descriptionMetaKeys = []string{"description", "og:description", "twitter:description"}
	posterMetaKeys      = []string{"og:image:secure_url", "og:image", "twitter:image"}
	videoMetaKeys       = []string{"og:video:secure_url", "og:video:url", "og:video", "twitter:player:stream"}

	ldImageKeys      = []string{"image", "thumbnailUrl", "thumbnail"}
	ldImageObjectKey = []string{"url", "contentUrl"}
	ldVideoKeys      = []string{"contentUrl", "embedUrl"}
	ldNestedVideo    = []string{"video", "trailer"}
)

// Parser extracts preview fields from a fetched listing page. Missing fields
// are returned empty; an error means the page could not be parsed at all.
type Parser interface {
	Parse(body []byte, requestURL string) (Fields, error)
}

// MetaParser reads meta tags and JSON-LD structured data. It suits pages
// that are served to link-preview crawlers with their metadata inline.
type MetaParser struct {
	origin string
	logger *zerolog.Logger
}

// NewMetaParser returns a parser that resolves relative references against origin
// when the page carries no better base.
func NewMetaParser(origin string, logger *zerolog.Logger) *MetaParser {
	return &MetaParser{origin: origin, logger: logger}
}

func (p *MetaParser) Parse(body []byte, requestURL string) (Fields, error) {
	d, err := newDocument(body, requestURL, p.origin, p.logger)
	if err != nil {
		return Fields{}, err
	}

	return Fields{
		PosterURL:    p.poster(d),
		Description:  d.description(),
		VideoURL:     p.video(d),
		CanonicalURL: d.canonical,
	}, nil
}

func (p *MetaParser) poster(d *document) string {
	if u := d.firstURL(d.metaValues(posterMetaKeys...)...); u != "" {
		return u
	}

	for _, node := range d.jsonLD() {
		for _, key := range ldImageKeys {
			if u := d.firstURL(urlCandidates(node[key], ldImageObjectKey...)...); u != "" {
				return u
			}
		}
	}

	return ""
}

func (p *MetaParser) video(d *document) string {
	if u := d.firstURL(d.metaValues(videoMetaKeys...)...); u != "" {
		return u
	}

	nodes := d.jsonLD()

	for _, node := range nodes {
		if !node.HasType("VideoObject") {
			continue
		}

		for _, key := range ldVideoKeys {
			if u := d.firstURL(urlCandidates(node[key])...); u != "" {
				return u
			}
		}
	}

	for _, node := range nodes {
		for _, key := range ldNestedVideo {
			if u := d.firstURL(urlCandidates(node[key], ldVideoKeys...)...); u != "" {
				return u
			}
		}
	}

	return ""
}

// DOMParser reads meta tags and falls back to visible video elements in the
// rendered page markup.
type DOMParser struct {
	origin string
	logger *zerolog.Logger
}

// NewDOMParser returns a parser that resolves relative references against origin
// when the page carries no better base.
func NewDOMParser(origin string, logger *zerolog.Logger) *DOMParser {
	return &DOMParser{origin: origin, logger: logger}
}

func (p *DOMParser) Parse(body []byte, requestURL string) (Fields, error) {
	d, err := newDocument(body, requestURL, p.origin, p.logger)
	if err != nil {
		return Fields{}, err
	}

	return Fields{
		PosterURL:    p.poster(d),
		Description:  d.description(),
		VideoURL:     p.video(d),
		CanonicalURL: d.canonical,
	}, nil
}

func (p *DOMParser) poster(d *document) string {
	return coalesce(
		d.firstURL(d.metaValues(posterMetaKeys...)...),
		d.firstVisibleAttr("video[poster]", "poster"),
		d.firstVisibleAttr("[data-poster]", "data-poster"),
	)
}

func (p *DOMParser) video(d *document) string {
	return coalesce(
		d.firstURL(d.metaValues(videoMetaKeys...)...),
		d.firstVisibleAttr("video[src]", "src"),
		d.firstVisibleAttr("video source[src]", "src"),
	)
}
