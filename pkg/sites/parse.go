package sites

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jibang-data/regional-news-pipeline/internal/domain"
)

// ListItems extracts listing entries from one listing page. It is a pure
// transformation over HTML text: no I/O, so it is unit-testable with fixture
// pages. Items missing a link are skipped; everything else is best-effort.
func ListItems(s Site, pageHTML []byte) ([]domain.ListingItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var items []domain.ListingItem
	doc.Find(s.ItemSelector).Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find(s.LinkSelector).First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		item := domain.ListingItem{
			URL:     resolveURL(strings.TrimSpace(href), s.BaseURL),
			RawDate: selectionText(sel, s.DateSelector),
		}

		if s.TitleSelector != "" {
			item.Title = selectionText(sel, s.TitleSelector)
		}
		if item.Title == "" {
			item.Title = strings.TrimSpace(link.Text())
		}
		if s.DescriptionSelector != "" {
			item.Description = selectionText(sel, s.DescriptionSelector)
		}
		if s.ImageSelector != "" {
			if img := sel.Find(s.ImageSelector).First(); img.Length() > 0 {
				src := firstAttr(img, "data-src", "src")
				if src != "" {
					item.ImageURL = resolveURL(src, s.BaseURL)
				}
			}
		}

		items = append(items, item)
	})

	return items, nil
}

// ParseDetail extracts subtitle and body text from a detail page, applying
// the site's noise-stripping rules before text extraction.
func ParseDetail(s Site, detailHTML []byte) (domain.DetailFields, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(detailHTML))
	if err != nil {
		return domain.DetailFields{}, fmt.Errorf("parse detail html: %w", err)
	}

	fields := domain.DetailFields{}

	for _, selector := range s.Detail.Subtitle {
		if node := doc.Find(selector).First(); node.Length() > 0 {
			fields.Subtitle = joinedText(node)
			break
		}
	}

	for _, selector := range s.Detail.Content {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		node.Find(strings.Join(append(defaultNoiseSelectors(), s.NoiseSelectors...), ", ")).Remove()
		fields.Content = CleanText(joinedText(node), s.NoiseKeywords)
		break
	}

	return fields, nil
}

// defaultNoiseSelectors are elements that never carry article text.
func defaultNoiseSelectors() []string {
	return []string{"script", "style", "iframe", "ins", "figcaption"}
}

func selectionText(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := sel.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// joinedText returns the selection's text with element boundaries and runs of
// whitespace collapsed to single spaces.
func joinedText(sel *goquery.Selection) string {
	var parts []string
	for _, f := range strings.Fields(sel.Text()) {
		parts = append(parts, f)
	}
	return strings.Join(parts, " ")
}

// resolveURL absolutizes href against base. Already-absolute URLs pass
// through; unparseable input returns the raw href rather than guessing.
func resolveURL(href, base string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
