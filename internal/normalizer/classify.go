package normalizer

import (
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/models"
)

// Rule maps path keywords to a document type. Rules are evaluated in order
// and the first keyword found in the path wins.
type Rule struct {
	Type     models.DocType `yaml:"type" json:"type"`
	Keywords []string       `yaml:"keywords" json:"keywords"`
}

// Validate validates a classification rule.
func (r Rule) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required),
		validation.Field(&r.Keywords, validation.Required, validation.Each(validation.Required)),
	)
}

// DefaultRules returns the built-in classification rules.
func DefaultRules() []Rule {
	return []Rule{
		{Type: "architecture", Keywords: []string{"architecture", "技术架构"}},
		{Type: "coding-standard", Keywords: []string{"coding", "standard", "开发规范"}},
		{Type: "testing", Keywords: []string{"test", "测试"}},
		{Type: "api-reference", Keywords: []string{"api"}},
		{Type: "deployment", Keywords: []string{"deploy", "部署"}},
		{Type: "user-guide", Keywords: []string{"user", "guide", "用户指南"}},
		{Type: "getting-started", Keywords: []string{"getting-started", "readme", "项目说明"}},
		{Type: "iteration", Keywords: []string{"sprint", "iteration", "迭代"}},
		{Type: "risk-management", Keywords: []string{"risk", "风险"}},
		{Type: "performance", Keywords: []string{"performance", "性能"}},
		{Type: "development", Keywords: []string{"development"}},
	}
}

// Classify returns the type of the first rule with a keyword contained in the
// lower-cased document path, or models.DocTypeGeneric.
func Classify(docPath string, rules []Rule) models.DocType {
	p := strings.ToLower(filepath.ToSlash(docPath))
	for _, r := range rules {
		for _, k := range r.Keywords {
			if k == "" {
				continue
			}
			if strings.Contains(p, strings.ToLower(k)) {
				return r.Type
			}
		}
	}
	return models.DocTypeGeneric
}
