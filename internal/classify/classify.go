// Package classify assigns roles to the unlabeled files of a dossier:
// exactly one application form, up to two attachments, the rest unknown.
package classify

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/textaudit/internal/model"
	"go.uber.org/zap"
)

// ErrNoApplicationForm is returned when no file can be identified as the form
var ErrNoApplicationForm = errors.New("no application form found")

// Error is a classification failure for one dossier
type Error struct {
	Candidates []string // Competing form candidates, empty when there were none
	Err        error
}

func (e *Error) Error() string {
	if len(e.Candidates) > 1 {
		return fmt.Sprintf("%v: ambiguous candidates %s", e.Err, strings.Join(e.Candidates, ", "))
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Assigned is one file with its role and the reason it was given
type Assigned struct {
	File   model.FileRef
	Role   model.FileRole
	Reason string
}

// Assignment maps every file of a dossier to a role, in arrival order
type Assignment struct {
	Files []Assigned
}

// Form returns the application form
func (a *Assignment) Form() (model.FileRef, bool) {
	for _, f := range a.Files {
		if f.Role == model.RoleApplicationForm {
			return f.File, true
		}
	}
	return model.FileRef{}, false
}

// Attachments returns attachment-1 then attachment-2, whichever are present
func (a *Assignment) Attachments() []model.FileRef {
	var out []model.FileRef
	for _, role := range []model.FileRole{model.RoleAttachment1, model.RoleAttachment2} {
		for _, f := range a.Files {
			if f.Role == role {
				out = append(out, f.File)
			}
		}
	}
	return out
}

// Unknown returns the files excluded from extraction
func (a *Assignment) Unknown() []model.FileRef {
	var out []model.FileRef
	for _, f := range a.Files {
		if f.Role == model.RoleUnknown {
			out = append(out, f.File)
		}
	}
	return out
}

// Role returns the role of a file by name
func (a *Assignment) Role(name string) model.FileRole {
	for _, f := range a.Files {
		if f.File.Name == name {
			return f.Role
		}
	}
	return model.RoleUnknown
}

// Previewer renders the beginning of a file as text for content scoring
type Previewer interface {
	Preview(ctx context.Context, ref model.FileRef) (string, error)
}

// FileHint is what an Advisor sees of a file
type FileHint struct {
	Name    string `json:"name"`
	Preview string `json:"preview,omitempty"`
}

// Advisor suggests roles when names and content are not decisive
type Advisor interface {
	AdviseRoles(ctx context.Context, files []FileHint) (map[string]model.FileRole, error)
}

// Classifier decides file roles. The zero configuration uses name cues only.
type Classifier struct {
	previewer Previewer
	advisor   Advisor
	minLabels int
	logger    *zap.Logger
}

// Option configures a Classifier
type Option func(*Classifier)

// WithPreviewer enables content-based scoring
func WithPreviewer(p Previewer) Option {
	return func(c *Classifier) { c.previewer = p }
}

// WithAdvisor enables the last-resort advisor
func WithAdvisor(a Advisor) Option {
	return func(c *Classifier) { c.advisor = a }
}

// WithMinFormLabels sets how many catalog labels a preview needs to count as a form
func WithMinFormLabels(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.minLabels = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a classifier
func New(opts ...Option) *Classifier {
	c := &Classifier{minLabels: 4, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type candidate struct {
	index  int
	file   model.FileRef
	cue    cue
	reason string
}

// Classify assigns a role to every file. When no single application form can be
// identified it returns the partial assignment together with an *Error.
func (c *Classifier) Classify(ctx context.Context, files []model.FileRef) (*Assignment, error) {
	out := &Assignment{Files: make([]Assigned, len(files))}
	var cands []*candidate

	for i, f := range files {
		out.Files[i] = Assigned{File: f, Role: model.RoleUnknown}
		switch {
		case IsSystemFile(f.Name):
			out.Files[i].Reason = "system file"
		case !Supported(f.Name):
			out.Files[i].Reason = "unsupported extension"
		default:
			cands = append(cands, &candidate{index: i, file: f, cue: nameCue(f.Name)})
		}
	}

	form, err := c.pickForm(ctx, cands)
	if err != nil {
		return out, err
	}
	out.Files[form.index].Role = model.RoleApplicationForm
	out.Files[form.index].Reason = form.reason

	assignAttachments(out, cands, form)

	c.logger.Debug("classified dossier files",
		zap.String("form", form.file.Name),
		zap.Int("attachments", len(out.Attachments())),
		zap.Int("unknown", len(out.Unknown())))
	return out, nil
}

func (c *Classifier) pickForm(ctx context.Context, cands []*candidate) (*candidate, error) {
	var named, open []*candidate
	hasAttachmentCue := false
	for _, cd := range cands {
		switch cd.cue {
		case cueForm:
			named = append(named, cd)
		case cueNone:
			open = append(open, cd)
		default:
			hasAttachmentCue = true
		}
	}

	if len(named) == 1 {
		named[0].reason = "name cue"
		return named[0], nil
	}

	pool := named
	if len(pool) == 0 {
		pool = open
		if len(open) == 1 && hasAttachmentCue {
			open[0].reason = "elimination"
			return open[0], nil
		}
	}

	var hints []FileHint
	if c.previewer != nil && len(pool) > 0 {
		best, previews := c.scorePreviews(ctx, pool)
		if best != nil {
			return best, nil
		}
		hints = previews
	}

	if c.advisor != nil && len(cands) > 0 {
		if best := c.consultAdvisor(ctx, cands, hints); best != nil {
			return best, nil
		}
	}

	return nil, &Error{Candidates: names(named), Err: ErrNoApplicationForm}
}

// scorePreviews returns the densest candidate when it clears the threshold with a strict lead
func (c *Classifier) scorePreviews(ctx context.Context, pool []*candidate) (*candidate, []FileHint) {
	var best *candidate
	bestScore, runnerUp := -1, -1
	hints := make([]FileHint, 0, len(pool))

	for _, cd := range pool {
		text, err := c.previewer.Preview(ctx, cd.file)
		if err != nil {
			c.logger.Warn("preview failed", zap.String("file", cd.file.Name), zap.Error(err))
			continue
		}
		hints = append(hints, FileHint{Name: cd.file.Name, Preview: text})

		score := LabelDensity(text)
		c.logger.Debug("preview scored", zap.String("file", cd.file.Name), zap.Int("labels", score))
		switch {
		case score > bestScore:
			runnerUp = bestScore
			best, bestScore = cd, score
		case score > runnerUp:
			runnerUp = score
		}
	}

	if best == nil || bestScore < c.minLabels || bestScore == runnerUp {
		return nil, hints
	}
	best.reason = fmt.Sprintf("preview labels=%d", bestScore)
	return best, hints
}

// consultAdvisor applies an advisor answer if it names exactly one known form
func (c *Classifier) consultAdvisor(ctx context.Context, cands []*candidate, previews []FileHint) *candidate {
	byName := make(map[string]*candidate, len(cands))
	preview := make(map[string]string, len(previews))
	for _, h := range previews {
		preview[h.Name] = h.Preview
	}
	hints := make([]FileHint, 0, len(cands))
	for _, cd := range cands {
		byName[cd.file.Name] = cd
		hints = append(hints, FileHint{Name: cd.file.Name, Preview: preview[cd.file.Name]})
	}

	roles, err := c.advisor.AdviseRoles(ctx, hints)
	if err != nil {
		c.logger.Warn("role advisor failed", zap.Error(err))
		return nil
	}

	var form *candidate
	for name, role := range roles {
		cd, ok := byName[name]
		if !ok {
			c.logger.Warn("role advisor named an unknown file", zap.String("file", name))
			continue
		}
		switch role {
		case model.RoleApplicationForm:
			if form != nil {
				c.logger.Warn("role advisor named more than one form")
				return nil
			}
			form = cd
		case model.RoleAttachment1:
			cd.cue = cueAttachment1
		case model.RoleAttachment2:
			cd.cue = cueAttachment2
		}
	}
	if form != nil {
		form.reason = "advisor"
	}
	return form
}

// assignAttachments fills the two attachment slots: name cues first, then arrival order
func assignAttachments(out *Assignment, cands []*candidate, form *candidate) {
	slots := map[model.FileRole]bool{}
	var rest []*candidate

	for _, cd := range cands {
		if cd == form {
			continue
		}
		role := model.RoleUnknown
		switch cd.cue {
		case cueAttachment1:
			role = model.RoleAttachment1
		case cueAttachment2:
			role = model.RoleAttachment2
		}
		if role != model.RoleUnknown && !slots[role] {
			slots[role] = true
			out.Files[cd.index].Role = role
			out.Files[cd.index].Reason = "name cue"
			continue
		}
		rest = append(rest, cd)
	}

	for _, cd := range rest {
		switch {
		case !slots[model.RoleAttachment1]:
			slots[model.RoleAttachment1] = true
			out.Files[cd.index].Role = model.RoleAttachment1
		case !slots[model.RoleAttachment2]:
			slots[model.RoleAttachment2] = true
			out.Files[cd.index].Role = model.RoleAttachment2
		default:
			out.Files[cd.index].Reason = "no free attachment slot"
			continue
		}
		out.Files[cd.index].Reason = "arrival order"
	}
}

func names(cands []*candidate) []string {
	out := make([]string, len(cands))
	for i, cd := range cands {
		out[i] = cd.file.Name
	}
	return out
}

var supportedExt = map[string]bool{
	".pdf": true, ".ofd": true,
	".doc": true, ".docx": true, ".wps": true,
	".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".tif": true, ".tiff": true, ".webp": true,
}

// Supported reports whether the extraction backend accepts the file type
func Supported(name string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(name))]
}

// IsSystemFile reports OS and editor artifacts such as ~$ lock files and .DS_Store
func IsSystemFile(name string) bool {
	base := filepath.Base(name)
	lower := strings.ToLower(base)
	return strings.HasPrefix(base, ".") ||
		strings.HasPrefix(base, "~$") ||
		lower == "thumbs.db" ||
		lower == "desktop.ini"
}
