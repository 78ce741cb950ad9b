package acquire

import (
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// Metadata captures the page structure the SEO, GEO, and accessibility
// phases score against.
type Metadata struct {
	Title         string
	Description   string
	Lang          string
	Canonical     string
	HasViewport   bool
	Headings      map[string]int
	H1Texts       []string
	H2Texts       []string
	H3Texts       []string
	Images        int
	ImagesNoAlt   int
	Links         int
	InternalLinks int
	ExternalLinks int
	WordCount     int
}

// contentSelectors are tried in priority order when readability cannot
// isolate the main content.
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	"#content",
	".post-content",
	".entry-content",
	".article-body",
	".content",
}

// ExtractPage turns raw page HTML into plain text plus structural metadata.
// Extraction strategies in priority order: readability, then prioritized
// content-container selectors, then whole-body text.
func ExtractPage(raw, pageURL string) (string, Metadata) {
	meta := Metadata{Headings: map[string]int{}}

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if docErr == nil {
		collectMetadata(doc, pageURL, &meta)
	}

	text := extractWithReadability(raw)
	if text == "" && docErr == nil {
		text = extractWithSelectors(doc)
	}
	text = normalizeWhitespace(text)
	meta.WordCount = len(strings.Fields(text))
	return text, meta
}

func collectMetadata(doc *goquery.Document, pageURL string, meta *Metadata) {
	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	meta.Description = strings.TrimSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", ""))
	meta.Lang = strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))
	meta.Canonical = strings.TrimSpace(doc.Find(`link[rel="canonical"]`).First().AttrOr("href", ""))
	meta.HasViewport = doc.Find(`meta[name="viewport"]`).Length() > 0

	for _, level := range []string{"h1", "h2", "h3", "h4", "h5", "h6"} {
		if n := doc.Find(level).Length(); n > 0 {
			meta.Headings[level] = n
		}
	}
	meta.H1Texts = headingTexts(doc, "h1")
	meta.H2Texts = headingTexts(doc, "h2")
	meta.H3Texts = headingTexts(doc, "h3")

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		meta.Images++
		if strings.TrimSpace(s.AttrOr("alt", "")) == "" {
			meta.ImagesNoAlt++
		}
	})

	baseHost := ""
	if parsed, err := url.Parse(pageURL); err == nil {
		baseHost = parsed.Hostname()
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}
		meta.Links++
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		if ref.Hostname() == "" || ref.Hostname() == baseHost {
			meta.InternalLinks++
		} else {
			meta.ExternalLinks++
		}
	})
}

func headingTexts(doc *goquery.Document, level string) []string {
	var out []string
	doc.Find(level).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// extractWithReadability isolates the main article body. Empty string
// means the strategy failed and the caller should fall back.
func extractWithReadability(raw string) string {
	article, err := readability.FromReader(strings.NewReader(raw), nil)
	if err != nil {
		return ""
	}
	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

// extractWithSelectors walks the priority selector list and returns the
// text of the first container with a meaningful amount of content.
func extractWithSelectors(doc *goquery.Document) string {
	doc.Find("head, script, style, noscript, template, nav, header, footer, aside").Remove()
	doc.Find("[class*='comment'], [id*='comment'], [class*='sidebar'], [id*='sidebar'], [class*='menu'], [id*='menu']").Remove()
	doc.Find("[role='navigation'], [role='banner'], [role='contentinfo']").Remove()

	for _, sel := range contentSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if text := sanitizeText(node.Text()); len(text) >= 200 {
			return text
		}
	}
	return sanitizeText(doc.Find("body").Text())
}

// sanitizeText strips any markup fragments left in an extracted string.
func sanitizeText(s string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(s))
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
