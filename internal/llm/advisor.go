package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/textaudit/internal/classify"
	"github.com/ppiankov/textaudit/internal/model"
	"go.uber.org/zap"
)

const advisorSystem = "你是教材申报材料审核助手。只输出 JSON，不要解释。"

// previewRunes bounds each file's preview inside the prompt
const previewRunes = 600

// RoleAdvisor asks a model which file of a dossier is the application form
// and which are the two attachments. It implements classify.Advisor.
type RoleAdvisor struct {
	provider Provider
	logger   *zap.Logger
}

// NewRoleAdvisor creates an advisor over provider
func NewRoleAdvisor(p Provider, logger *zap.Logger) *RoleAdvisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleAdvisor{provider: p, logger: logger}
}

// AdviseRoles implements classify.Advisor
func (a *RoleAdvisor) AdviseRoles(ctx context.Context, files []classify.FileHint) (map[string]model.FileRole, error) {
	resp, err := a.provider.Complete(ctx, CompletionRequest{
		System: advisorSystem,
		Prompt: BuildRolePrompt(files),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.provider.Name(), err)
	}

	roles, err := ParseRoles(resp.Text)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("advisor answered",
		zap.String("provider", a.provider.Name()),
		zap.String("model", resp.Model),
		zap.Int("tokens", resp.TokensUsed),
		zap.Int("roles", len(roles)))
	return roles, nil
}

// BuildRolePrompt lists the files with the head of their content
func BuildRolePrompt(files []classify.FileHint) string {
	var b strings.Builder
	b.WriteString("以下是一份教材申报材料文件夹中的文件。请判断每个文件的角色：\n")
	fmt.Fprintf(&b, "- %s：申报书/申报表（逐项填写申报单位、教材名称、ISBN、主编、出版单位、版次等信息的表格）\n", model.RoleApplicationForm)
	fmt.Fprintf(&b, "- %s：附件1（版权页等出版信息证明）\n", model.RoleAttachment1)
	fmt.Fprintf(&b, "- %s：附件2（封面、目录等其他证明材料）\n", model.RoleAttachment2)
	fmt.Fprintf(&b, "- %s：无法判断\n\n", model.RoleUnknown)

	for i, f := range files {
		fmt.Fprintf(&b, "文件%d：%s\n", i+1, f.Name)
		if p := strings.TrimSpace(f.Preview); p != "" {
			if r := []rune(p); len(r) > previewRunes {
				p = string(r[:previewRunes])
			}
			fmt.Fprintf(&b, "内容开头：\n%s\n", p)
		}
		b.WriteString("\n")
	}

	b.WriteString(`只输出一个 JSON 对象，键为文件名，值为角色，例如 {"a.pdf": "application-form", "b.pdf": "attachment-1"}。`)
	return b.String()
}

// ParseRoles decodes the model answer, tolerating Markdown code fences
func ParseRoles(text string) (map[string]model.FileRole, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var raw map[string]string
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("parse advisor answer: %w", err)
	}

	roles := make(map[string]model.FileRole, len(raw))
	for name, role := range raw {
		if r, ok := parseRole(role); ok {
			roles[name] = r
		}
	}
	return roles, nil
}

func parseRole(s string) (model.FileRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(model.RoleApplicationForm), "form", "申报书", "申报表":
		return model.RoleApplicationForm, true
	case string(model.RoleAttachment1), "附件1":
		return model.RoleAttachment1, true
	case string(model.RoleAttachment2), "附件2":
		return model.RoleAttachment2, true
	case string(model.RoleUnknown):
		return model.RoleUnknown, true
	}
	return "", false
}
