package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

func (e *Extractor) title(pg *page) string {
	for _, node := range productFirst(pg.nodes) {
		if name := e.clean(stringField(node, "name")); utf8.RuneCountInString(name) >= minJSONTitle {
			return name
		}
	}

	for _, sel := range e.profile.TitleSelectors {
		if title := e.clean(valueOf(pg.doc.Find(sel).First())); utf8.RuneCountInString(title) >= minTitleLength {
			return title
		}
	}

	var title string
	pg.doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !e.titleClass.MatchString(class) {
			return true
		}
		if text := e.clean(s.Text()); utf8.RuneCountInString(text) >= minTitleLength {
			title = text
			return false
		}
		return true
	})
	if title != "" {
		return title
	}

	if text := e.clean(pg.doc.Find("h1").First().Text()); utf8.RuneCountInString(text) >= minTitleLength {
		return text
	}

	if og := e.clean(metaContent(pg.doc, `meta[property="og:title"]`)); utf8.RuneCountInString(og) >= minTitleLength {
		return og
	}
	return ""
}

func (e *Extractor) description(pg *page) string {
	for _, node := range productFirst(pg.nodes) {
		if desc := e.clean(stringField(node, "description")); utf8.RuneCountInString(desc) >= minDescription {
			return truncate(desc, maxDescription)
		}
	}

	if bullets := e.bullets(pg.doc); len(bullets) > 0 {
		return truncate(strings.Join(bullets, " | "), maxDescription)
	}

	for _, sel := range e.profile.DescriptionSelectors {
		if text := e.clean(pg.doc.Find(sel).First().Text()); utf8.RuneCountInString(text) >= minDescription {
			return truncate(text, maxDescription)
		}
	}

	if meta := e.clean(metaContent(pg.doc, `meta[name="description"]`)); utf8.RuneCountInString(meta) >= minDescription {
		return truncate(meta, maxDescription)
	}
	if og := e.clean(metaContent(pg.doc, `meta[property="og:description"]`)); og != "" {
		return truncate(og, maxDescription)
	}
	return ""
}

// bullets collects up to five feature bullets from the first selector that
// yields any, skipping store boilerplate.
func (e *Extractor) bullets(doc *goquery.Document) []string {
	for _, sel := range e.profile.BulletSelectors {
		var out []string
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := e.clean(s.Text())
			if utf8.RuneCountInString(text) < minBulletLength || e.bulletBoilerplate.MatchString(text) {
				return true
			}
			out = append(out, text)
			return len(out) < maxBullets
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return v
}
