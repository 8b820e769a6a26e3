// Package page holds the server-side documents of the two demo pages.
//
// A Document is mutated only inside Mutate, which serialises writers the way a
// browser main thread would. Region selections are resolved once when the page is
// built and handed to renderers explicitly.
package page

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

//go:embed templates/*.html
var templates embed.FS

// Element ids of the image-search page.
const (
	IDImagePreview  = "imagePreview"
	IDSearchResults = "searchResults"
	IDUploadForm    = "uploadForm"
	IDSearchForm    = "searchForm"
	IDPreviewForm   = "previewForm"
	IDUploadMessage = "uploadMessage"
)

// Element ids of the knowledge-base page.
const (
	IDKBUploadForm    = "upload-form"
	IDKBSearchForm    = "search-form"
	IDKBResults       = "results"
	IDKBSearchResults = "search-results"
	// FieldSearch is the name of the knowledge-base query field.
	FieldSearch = "search"
)

// IDFeedback is the alert dialog present on both pages.
const IDFeedback = "feedback"

// Document is a parsed page guarded for single-writer access.
type Document struct {
	mu  sync.Mutex
	doc *goquery.Document
}

func load(name string) (*Document, error) {
	data, err := templates.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("read page template %s: %w", name, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse page template %s: %w", name, err)
	}
	return &Document{doc: doc}, nil
}

// region resolves an element by id; a missing element is a template bug.
func (d *Document) region(id string) (*goquery.Selection, error) {
	sel := d.doc.Find("#" + id)
	if sel.Length() != 1 {
		return nil, fmt.Errorf("page element #%s: found %d", id, sel.Length())
	}
	return sel, nil
}

// Mutate runs fn with exclusive access to the document.
func (d *Document) Mutate(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// HTML serialises the document.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.htmlLocked()
}

func (d *Document) htmlLocked() (string, error) {
	s, err := goquery.OuterHtml(d.doc.Selection)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return s, nil
}

// Images is the image-search page.
type Images struct {
	*Document
	Preview  *goquery.Selection
	Results  *goquery.Selection
	Message  *goquery.Selection
	Feedback *goquery.Selection
}

// NewImages builds a fresh image-search page.
func NewImages() (*Images, error) {
	d, err := load("images.html")
	if err != nil {
		return nil, err
	}
	p := &Images{Document: d}
	for id, dst := range map[string]**goquery.Selection{
		IDImagePreview:  &p.Preview,
		IDSearchResults: &p.Results,
		IDUploadMessage: &p.Message,
		IDFeedback:      &p.Feedback,
	} {
		if *dst, err = d.region(id); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Render serialises the page and dismisses a shown alert, which is one-shot.
func (p *Images) Render() (string, error) {
	return renderOnce(p.Document, p.Feedback)
}

// Knowledge is the knowledge-base page.
type Knowledge struct {
	*Document
	Results       *goquery.Selection
	SearchResults *goquery.Selection
	Feedback      *goquery.Selection
}

// NewKnowledge builds a fresh knowledge-base page.
func NewKnowledge() (*Knowledge, error) {
	d, err := load("knowledge.html")
	if err != nil {
		return nil, err
	}
	p := &Knowledge{Document: d}
	for id, dst := range map[string]**goquery.Selection{
		IDKBResults:       &p.Results,
		IDKBSearchResults: &p.SearchResults,
		IDFeedback:        &p.Feedback,
	} {
		if *dst, err = d.region(id); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Render serialises the page and dismisses a shown alert.
func (p *Knowledge) Render() (string, error) {
	return renderOnce(p.Document, p.Feedback)
}

func renderOnce(d *Document, dialog *goquery.Selection) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.htmlLocked()
	if err != nil {
		return "", err
	}
	dialog.RemoveAttr("open")
	return s, nil
}
