// Package form holds the payload built from a submitted page form.
package form

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"
)

// File is a file attached to a form field.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Field is a text form field.
type Field struct {
	Name  string
	Value string
}

// Payload is the ephemeral key/value bundle of a form at submit time.
// Order of fields and files is preserved.
type Payload struct {
	fields []Field
	files  []File
}

// New creates an empty payload.
func New() *Payload {
	return &Payload{}
}

// Add appends a text field.
func (p *Payload) Add(name, value string) *Payload {
	p.fields = append(p.fields, Field{Name: name, Value: value})
	return p
}

// AddFile appends a file.
func (p *Payload) AddFile(f File) *Payload {
	p.files = append(p.files, f)
	return p
}

// Fields returns the text fields in insertion order.
func (p *Payload) Fields() []Field { return p.fields }

// Files returns the files in insertion order.
func (p *Payload) Files() []File { return p.files }

// Value returns the first value of the named field.
func (p *Payload) Value(name string) (string, bool) {
	for _, f := range p.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// File returns the first file attached to the named field.
func (p *Payload) File(field string) (File, bool) {
	for _, f := range p.files {
		if f.Field == field {
			return f, true
		}
	}
	return File{}, false
}

// Empty reports whether f is an untouched file input: no name and no content.
func (f File) Empty() bool {
	return f.Name == "" && len(f.Data) == 0
}

// ReadMultipart streams the parts of a multipart body into a payload in submission order.
// A part with a file name or its own Content-Type header is a file, any other part is a text field.
func ReadMultipart(mr *multipart.Reader) (*Payload, error) {
	p := New()
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return p, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read form part: %w", err)
		}
		if err := p.addPart(part); err != nil {
			_ = part.Close()
			return nil, err
		}
		_ = part.Close()
	}
}

func (p *Payload) addPart(part *multipart.Part) error {
	name := part.FormName()
	if name == "" {
		return nil
	}

	data, err := io.ReadAll(part)
	if err != nil {
		return fmt.Errorf("read form part %q: %w", name, err)
	}

	filename := part.FileName()
	_, hasContentType := part.Header["Content-Type"]
	if filename == "" && !hasContentType {
		p.Add(name, string(data))
		return nil
	}
	p.AddFile(File{
		Field:       name,
		Name:        filename,
		ContentType: part.Header.Get("Content-Type"),
		Data:        data,
	})
	return nil
}

// ParseQuery decodes an application/x-www-form-urlencoded body into a payload in submission order.
func ParseQuery(query string) (*Payload, error) {
	p := New()
	for query != "" {
		var pair string
		pair, query, _ = strings.Cut(query, "&")
		if strings.Contains(pair, ";") {
			return nil, fmt.Errorf("invalid semicolon separator in form body")
		}
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("decode form field name: %w", err)
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("decode form field %q: %w", key, err)
		}
		p.Add(key, value)
	}
	return p, nil
}
