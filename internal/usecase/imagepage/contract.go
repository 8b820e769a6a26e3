package imagepage

import (
	"context"

	"github.com/kailas-cloud/vecdemo/internal/domain/form"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/domain/upload"
)

// Backend is the image demo backend.
type Backend interface {
	Upload(ctx context.Context, p *form.Payload) (upload.Response, error)
	SearchImages(ctx context.Context, p *form.Payload) (result.Images, error)
}
