// Package render writes backend answers into page regions.
//
// Every function takes the target region explicitly and must be called with the
// owning page document locked (page.Document.Mutate).
package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
)

// ImageResults replaces the region's content with one container per ranked image.
func ImageResults(region *goquery.Selection, res result.Images) {
	region.Empty()
	for _, img := range res.Ranked() {
		region.AppendHtml(imageContainer(img))
	}
}

func imageContainer(img result.Image) string {
	rank := strconv.Itoa(img.Rank())
	var b strings.Builder
	b.WriteString(`<div class="image-container"><p>Rank `)
	b.WriteString(rank)
	b.WriteString(`</p><img src="`)
	b.WriteString(html.EscapeString(img.URL()))
	b.WriteString(`" alt="Image Rank `)
	b.WriteString(rank)
	b.WriteString(`"></div>`)
	return b.String()
}

// KnowledgeResults sets the region's text to the answer re-serialized as JSON indented by two spaces.
func KnowledgeResults(region *goquery.Selection, res result.Knowledge) error {
	text, err := stringify(res.Raw())
	if err != nil {
		return fmt.Errorf("format knowledge answer: %w", err)
	}
	region.SetText(text)
	return nil
}

// Preview points the preview image at src.
func Preview(img *goquery.Selection, src string) {
	img.SetAttr("src", src)
}
