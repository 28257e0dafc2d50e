package registry

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CompanyRule maps a company to the product/brand keywords that identify it
// in free text. The detector matches these case-insensitively.
type CompanyRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// LoadCompanyRules reads detection rules from a YAML file.
func LoadCompanyRules(path string) ([]CompanyRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "registry: read company rules")
	}

	var rules []CompanyRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, eris.Wrap(err, "registry: unmarshal company rules")
	}
	return rules, nil
}

// DefaultCompanyRules returns the built-in company keyword table.
func DefaultCompanyRules() []CompanyRule {
	return []CompanyRule{
		{Name: "amazon", Keywords: []string{"amazon", "prime", "aws", "kindle", "echo", "alexa"}},
		{Name: "apple", Keywords: []string{"apple", "iphone", "macbook", "ipad", "mac", "ios", "airpods"}},
		{Name: "facebook", Keywords: []string{"facebook", "meta", "instagram", "whatsapp"}},
		{Name: "flipkart", Keywords: []string{"flipkart"}},
		{Name: "google", Keywords: []string{"google", "pixel", "android", "gmail"}},
		{Name: "microsoft", Keywords: []string{"microsoft", "windows", "xbox", "office"}},
		{Name: "samsung", Keywords: []string{"samsung", "galaxy"}},
		{Name: "dell", Keywords: []string{"dell", "latitude", "inspiron"}},
		{Name: "hp", Keywords: []string{"pavilion", "envy"}},
		{Name: "lenovo", Keywords: []string{"lenovo", "thinkpad"}},
	}
}
