package parser

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// images gathers gallery images, then structured data images, then og:image.
// The result is deduplicated, free of placeholder sentinels and capped at ten.
func (e *Extractor) images(pg *page) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, maxImages)

	add := func(raw string) bool {
		u, ok := e.normalizeImage(raw)
		if ok && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
		return len(out) < maxImages
	}

	for _, sel := range e.profile.ImageSelectors {
		pg.doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, attr := range imageAttributes {
				v, ok := s.Attr(attr)
				if !ok || v == "" {
					continue
				}
				candidates := []string{v}
				if attr == "data-a-dynamic-image" {
					candidates = dynamicImageURLs(v)
				}
				for _, c := range candidates {
					if !add(c) {
						return false
					}
				}
			}
			return true
		})
		if len(out) >= maxImages {
			return out
		}
	}

	for _, node := range productFirst(pg.nodes) {
		for _, u := range jsonStrings(node["image"], "url", "contentUrl") {
			if !add(u) {
				return out
			}
		}
	}

	add(metaContent(pg.doc, `meta[property="og:image"]`))
	return out
}

func (e *Extractor) normalizeImage(raw string) (string, bool) {
	u, ok := absoluteURL(e.profile.Origin, raw)
	if !ok {
		return "", false
	}
	lower := strings.ToLower(u)
	for _, sentinel := range imageSentinels {
		if strings.Contains(lower, sentinel) {
			return "", false
		}
	}
	for _, rw := range e.profile.ImageRewrites {
		u = rw.Pattern.ReplaceAllString(u, rw.Replace)
	}
	return u, true
}

// dynamicImageURLs decodes the {"url":[width,height]} map amazon embeds in
// data-a-dynamic-image, largest image first.
func dynamicImageURLs(raw string) []string {
	var sizes map[string][]float64
	if err := json.Unmarshal([]byte(raw), &sizes); err != nil {
		return nil
	}
	urls := make([]string, 0, len(sizes))
	for u := range sizes {
		urls = append(urls, u)
	}
	area := func(u string) float64 {
		if d := sizes[u]; len(d) == 2 {
			return d[0] * d[1]
		}
		return 0
	}
	sort.Slice(urls, func(i, j int) bool {
		if area(urls[i]) != area(urls[j]) {
			return area(urls[i]) > area(urls[j])
		}
		return urls[i] < urls[j]
	})
	return urls
}

func isVideoURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "mp4") || strings.Contains(lower, "video") || strings.Contains(lower, "m3u8")
}

// video checks dedicated containers, then inline scripts, then structured data.
func (e *Extractor) video(pg *page) string {
	for _, sel := range e.profile.VideoSelectors {
		s := pg.doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		for _, attr := range videoAttributes {
			v, _ := s.Attr(attr)
			if u, ok := absoluteURL(e.profile.Origin, v); ok && isVideoURL(u) {
				return u
			}
		}
	}

	var found string
	pg.doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body := strings.ReplaceAll(s.Text(), `\/`, "/")
		for _, p := range e.videoPatterns {
			for _, m := range p.FindAllStringSubmatch(body, -1) {
				if strings.HasPrefix(m[1], "http") {
					found = m[1]
					return false
				}
			}
		}
		return true
	})
	if found != "" {
		return found
	}

	for _, node := range productFirst(pg.nodes) {
		for _, u := range jsonStrings(node["video"], "contentUrl", "embedUrl", "url") {
			if strings.HasPrefix(u, "http") {
				return u
			}
		}
	}
	return ""
}
