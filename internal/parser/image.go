package parser

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// bestImage scores every image candidate discoverable on a feed item and
// returns the URL of the highest-scoring one, or "" if none were found.
// Ties are broken by order of discovery: the item-level image first, then
// enclosures, then media extensions. The content-HTML <img> fallback is used
// only when there is no candidate at all.
func bestImage(item *gofeed.Item) string {
	var candidates []imageCandidate

	if item.Image != nil && item.Image.URL != "" {
		candidates = append(candidates, imageCandidate{url: item.Image.URL})
	}

	for _, enc := range item.Enclosures {
		if enc.URL != "" && strings.HasPrefix(enc.Type, "image") {
			candidates = append(candidates, imageCandidate{url: enc.URL})
		}
	}

	candidates = append(candidates, mediaExtensionCandidates(item)...)

	if best := pickBest(candidates); best != "" {
		return best
	}

	return contentImageFallback(item.Content)
}

// mediaExtensionCandidates reads media:content and media:thumbnail entries
// out of gofeed's generic extension tree, which is how it surfaces
// namespaced elements gofeed has no first-class field for.
func mediaExtensionCandidates(item *gofeed.Item) []imageCandidate {
	media, ok := item.Extensions["media"]
	if !ok {
		return nil
	}

	var candidates []imageCandidate
	for _, key := range []string{"thumbnail", "content"} {
		for _, ext := range media[key] {
			url := ext.Attrs["url"]
			if url == "" {
				continue
			}
			if key == "content" && ext.Attrs["medium"] != "" && ext.Attrs["medium"] != "image" {
				continue
			}
			candidates = append(candidates, imageCandidate{
				url:    url,
				width:  atoiOrZero(ext.Attrs["width"]),
				height: atoiOrZero(ext.Attrs["height"]),
			})
		}
	}
	return candidates
}

// contentImageFallback scans an item's HTML content for the first <img src>
// when no enclosure or media extension yielded a candidate. It scores zero,
// so it is only ever used when it is the only option.
func contentImageFallback(contentHTML string) string {
	if strings.TrimSpace(contentHTML) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contentHTML))
	if err != nil {
		return ""
	}

	src, _ := doc.Find("img").First().Attr("src")
	return strings.TrimSpace(src)
}

func pickBest(candidates []imageCandidate) string {
	var best imageCandidate
	found := false
	for _, c := range candidates {
		if !found || c.score() > best.score() {
			best = c
			found = true
		}
	}
	if !found {
		return ""
	}
	return best.url
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
