package pipeline

import (
	"context"

	"github.com/ppiankov/textaudit/internal/extract"
	"github.com/ppiankov/textaudit/internal/model"
)

// RenderPreviewer feeds the classifier with the head of each file's rendering.
// Behind a cached backend the full rendering is reused when the file turns out
// to be an attachment.
type RenderPreviewer struct {
	renderer extract.TextRenderer
	maxBytes int64
	chars    int
}

// NewRenderPreviewer creates a previewer returning at most chars runes (0 = all)
func NewRenderPreviewer(r extract.TextRenderer, maxBytes int64, chars int) *RenderPreviewer {
	return &RenderPreviewer{renderer: r, maxBytes: maxBytes, chars: chars}
}

// Preview implements classify.Previewer
func (p *RenderPreviewer) Preview(ctx context.Context, ref model.FileRef) (string, error) {
	doc, err := extract.Load(ref, p.maxBytes)
	if err != nil {
		return "", err
	}
	text, err := p.renderer.RenderText(ctx, doc)
	if err != nil {
		return "", err
	}
	if p.chars > 0 {
		if r := []rune(text); len(r) > p.chars {
			text = string(r[:p.chars])
		}
	}
	return text, nil
}
