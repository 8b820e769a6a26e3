// Package preview turns a selected file into a data URL for an image preview.
package preview

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/kailas-cloud/vecdemo/internal/domain"
	"github.com/kailas-cloud/vecdemo/internal/domain/form"
)

const genericType = "application/octet-stream"

// FromPayload builds the data URL for the file selected in field.
// A missing or empty file input yields domain.ErrNoFile.
func FromPayload(ctx context.Context, p *form.Payload, field string) (string, error) {
	if p == nil {
		return "", domain.ErrNoFile
	}
	f, ok := p.File(field)
	if !ok || f.Empty() {
		return "", domain.ErrNoFile
	}
	return DataURL(ctx, f)
}

// DataURL encodes f as data:<mime>;base64,<payload>.
func DataURL(ctx context.Context, f form.File) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("read %q: %w", f.Name, err)
	}

	var b strings.Builder
	enc := base64.StdEncoding
	b.Grow(len("data:;base64,") + len(genericType) + enc.EncodedLen(len(f.Data)))
	b.WriteString("data:")
	b.WriteString(mediaType(f))
	b.WriteString(";base64,")
	b.WriteString(enc.EncodeToString(f.Data))
	return b.String(), nil
}

// mediaType prefers the declared content type, then the file extension, then sniffing.
func mediaType(f form.File) string {
	if mt, _, err := mime.ParseMediaType(f.ContentType); err == nil && mt != genericType {
		return mt
	}
	if i := strings.LastIndexByte(f.Name, '.'); i >= 0 {
		if byExt := mime.TypeByExtension(f.Name[i:]); byExt != "" {
			if mt, _, err := mime.ParseMediaType(byExt); err == nil {
				return mt
			}
		}
	}
	if len(f.Data) == 0 {
		return genericType
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(f.Data))
	return mt
}
