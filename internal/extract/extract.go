// Package extract defines the two capabilities the review pipeline needs from a
// document extraction backend: structured field extraction for the application
// form and full-text rendering for attachments.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/textaudit/internal/model"
	"github.com/ppiankov/textaudit/internal/normalize"
)

// Document is one file handed to the backend
type Document struct {
	Name    string
	Path    string
	Content []byte
}

// Fields maps a field to its extracted value. An absent key means the value was not found.
type Fields map[model.FieldName]string

// FieldExtractor pulls a fixed set of named fields out of a structured document
type FieldExtractor interface {
	ExtractFields(ctx context.Context, doc Document, fields []model.Field) (Fields, error)
}

// TextRenderer renders a document as Markdown text, tables flattened
type TextRenderer interface {
	RenderText(ctx context.Context, doc Document) (string, error)
}

// Backend is a backend that provides both capabilities
type Backend interface {
	FieldExtractor
	TextRenderer
}

// Operations reported in extraction errors
const (
	OpExtract = "extract"
	OpRender  = "render"
	OpRead    = "read"
)

// ErrEmptyDocument is returned when a file has no content
var ErrEmptyDocument = errors.New("empty document")

// Error is an extraction failure for one file
type Error struct {
	Op   string
	File string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err as an *Error unless it already is one
func Wrap(op, file string, err error) error {
	if err == nil {
		return nil
	}
	var ee *Error
	if errors.As(err, &ee) {
		return err
	}
	return &Error{Op: op, File: file, Err: err}
}

// Load reads a file into a Document, refusing files larger than maxBytes (0 = unlimited)
func Load(ref model.FileRef, maxBytes int64) (Document, error) {
	info, err := os.Stat(ref.Path)
	if err != nil {
		return Document{}, Wrap(OpRead, ref.Name, err)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return Document{}, Wrap(OpRead, ref.Name, fmt.Errorf("file size %d exceeds limit %d", info.Size(), maxBytes))
	}

	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return Document{}, Wrap(OpRead, ref.Name, err)
	}
	if len(data) == 0 {
		return Document{}, Wrap(OpRead, ref.Name, ErrEmptyDocument)
	}

	return Document{Name: ref.Name, Path: ref.Path, Content: data}, nil
}

// Sanitize drops placeholder values and fields that were not requested,
// so backends never leak "N/A" or empty strings as real values
func Sanitize(raw map[string]string, fields []model.Field) Fields {
	out := make(Fields)
	for _, f := range fields {
		v, ok := raw[string(f.Name)]
		if !ok || normalize.IsPlaceholder(v) {
			continue
		}
		out[f.Name] = strings.TrimSpace(v)
	}
	return out
}
