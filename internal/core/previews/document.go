package previews

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

const (
	attrContent  = "content"
	attrHref     = "href"
	attrRel      = "rel"
	attrStyle    = "style"
	attrHidden   = "hidden"
	attrAria     = "aria-hidden"
	relCanonical = "canonical"
	metaOGURL    = "og:url"
	ldKeyDesc    = "description"
)

var metaKeyAttrs = []string{"property", "name", "itemprop"}

// document is a parsed listing page plus the lookups both parsers share.
type document struct {
	doc        *goquery.Document
	requestURL string
	origin     string
	logger     *zerolog.Logger

	meta      map[string][]string
	nodes     []Node
	ldLoaded  bool
	canonical string
	base      string
}

func newDocument(body []byte, requestURL, origin string, logger *zerolog.Logger) (*document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	d := &document{
		doc:        goquery.NewDocumentFromNode(root),
		requestURL: strings.TrimSpace(requestURL),
		origin:     origin,
		logger:     logger,
	}

	d.meta = d.collectMeta()
	d.canonical = d.findCanonical()
	d.base = coalesce(d.canonical, ResolveURL(d.requestURL, origin), origin)

	return d, nil
}

// collectMeta indexes meta content by lowercased property, name and itemprop
// keys, keeping document order.
func (d *document) collectMeta() map[string][]string {
	meta := make(map[string][]string)

	d.doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr(attrContent, ""))
		if content == "" {
			return
		}

		for _, attr := range metaKeyAttrs {
			key := strings.ToLower(strings.TrimSpace(s.AttrOr(attr, "")))
			if key != "" {
				meta[key] = append(meta[key], content)
			}
		}
	})

	return meta
}

// metaValues returns the meta values for keys, in key priority order.
func (d *document) metaValues(keys ...string) []string {
	var values []string
	for _, key := range keys {
		values = append(values, d.meta[key]...)
	}

	return values
}

func (d *document) findCanonical() string {
	resolveBase := coalesce(ResolveURL(d.requestURL, d.origin), d.origin)

	var canonical string

	d.doc.Find("link[rel][href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !hasRelToken(s.AttrOr(attrRel, ""), relCanonical) {
			return true
		}

		canonical = ResolveURL(s.AttrOr(attrHref, ""), resolveBase)

		return canonical == ""
	})

	if canonical != "" {
		return canonical
	}

	for _, v := range d.metaValues(metaOGURL) {
		if resolved := ResolveURL(v, resolveBase); resolved != "" {
			return resolved
		}
	}

	return ""
}

// description returns the first meta or JSON-LD description that survives sanitizing.
func (d *document) description() string {
	for _, v := range d.metaValues(descriptionMetaKeys...) {
		if text := SanitizeText(StripMarkup(v)); text != "" {
			return text
		}
	}

	for _, node := range d.jsonLD() {
		if s, ok := node[ldKeyDesc].(string); ok {
			if text := SanitizeText(StripMarkup(s)); text != "" {
				return text
			}
		}
	}

	return ""
}

// jsonLD returns the flattened structured data of every ld+json block.
// Malformed blocks are skipped.
func (d *document) jsonLD() []Node {
	if d.ldLoaded {
		return d.nodes
	}

	d.ldLoaded = true

	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if typ != "application/ld+json" {
			return
		}

		nodes, err := parseJSONLD(s.Text())
		if err != nil {
			d.logger.Warn().Err(err).Str(logKeyURL, d.requestURL).Msg("skipping malformed json-ld block")

			return
		}

		d.nodes = append(d.nodes, nodes...)
	})

	return d.nodes
}

// firstURL resolves candidates against the page base and returns the first usable one.
func (d *document) firstURL(candidates ...string) string {
	for _, c := range candidates {
		if resolved := ResolveURL(c, d.base); resolved != "" {
			return resolved
		}
	}

	return ""
}

// firstVisibleAttr returns the first resolvable attr value among visible matches of selector.
func (d *document) firstVisibleAttr(selector, attr string) string {
	var found string

	d.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !visible(s) {
			return true
		}

		found = d.firstURL(s.AttrOr(attr, ""))

		return found == ""
	})

	return found
}

// visible reports whether neither the element nor any ancestor is hidden.
func visible(s *goquery.Selection) bool {
	if s.Length() == 0 {
		return false
	}

	for n := s.Get(0); n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hiddenNode(n) {
			return false
		}
	}

	return true
}

func hiddenNode(n *html.Node) bool {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case attrHidden:
			return true
		case attrAria:
			if strings.EqualFold(strings.TrimSpace(a.Val), "true") {
				return true
			}
		case attrStyle:
			style := strings.ToLower(strings.ReplaceAll(a.Val, " ", ""))
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}

	return false
}

func hasRelToken(rel, token string) bool {
	for _, t := range strings.Fields(rel) {
		if strings.EqualFold(t, token) {
			return true
		}
	}

	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return u.Hostname()
}

func coalesce(strs ...string) string {
	for _, s := range strs {
		if s != "" {
			return s
		}
	}

	return ""
}
