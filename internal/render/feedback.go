package render

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/kailas-cloud/vecdemo/internal/domain/feedback"
)

// Presenter surfaces an upload message to the user.
type Presenter interface {
	Present(message string)
}

// NewPresenter returns the presenter for mode. dialog is used by alert, text by inline.
func NewPresenter(mode feedback.Mode, dialog, text *goquery.Selection) Presenter {
	if mode == feedback.Alert {
		return &alertPresenter{dialog: dialog}
	}
	return &inlinePresenter{region: text}
}

type alertPresenter struct {
	dialog *goquery.Selection
}

func (p *alertPresenter) Present(message string) {
	p.dialog.Find(".message").SetText(message)
	p.dialog.SetAttr("open", "")
}

type inlinePresenter struct {
	region *goquery.Selection
}

func (p *inlinePresenter) Present(message string) {
	p.region.SetText(message)
}
