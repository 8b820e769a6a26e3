package knowledgepage

import (
	"context"

	"github.com/kailas-cloud/vecdemo/internal/domain/form"
	"github.com/kailas-cloud/vecdemo/internal/domain/search/result"
	"github.com/kailas-cloud/vecdemo/internal/domain/upload"
)

// Backend is the knowledge-base demo backend.
type Backend interface {
	Upload(ctx context.Context, p *form.Payload) (upload.Response, error)
	SearchKnowledge(ctx context.Context, query string) (result.Knowledge, error)
}
