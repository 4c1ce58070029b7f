package rules

import (
	"fmt"
	"os"
	"strings"

	"ecoguardian/backend/verdict"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCategory = "General Cleanup"

	TypeStandard    = "standard"
	TypeSegregation = "segregation"
)

// Rule validates classifier labels for one category.
type Rule interface {
	Type() string
	// Passes reports whether the labels satisfy the rule.
	Passes(labels []string) bool
	// FailureReason is the user-facing message for category when Passes is false.
	FailureReason(category string) string
}

// StandardRule requires a waste label and a disposal label.
type StandardRule struct {
	Waste    []string
	Disposal []string
}

func (StandardRule) Type() string { return TypeStandard }

func (r StandardRule) Passes(labels []string) bool {
	return Matches(labels, r.Waste) && Matches(labels, r.Disposal)
}

func (StandardRule) FailureReason(category string) string {
	return fmt.Sprintf("Verification Failed for %s.", category)
}

// SegregationRule requires a container and at least one dry or wet item.
type SegregationRule struct {
	Dry        []string
	Wet        []string
	Containers []string
}

func (SegregationRule) Type() string { return TypeSegregation }

func (r SegregationRule) Passes(labels []string) bool {
	return Matches(labels, r.Containers) && (Matches(labels, r.Dry) || Matches(labels, r.Wet))
}

func (SegregationRule) FailureReason(category string) string {
	return fmt.Sprintf("Segregation Failed for %s.", category)
}

// Matches reports whether any keyword occurs, case-insensitively, within any label.
func Matches(labels, keywords []string) bool {
	for _, label := range labels {
		l := strings.ToLower(label)
		for _, k := range keywords {
			if k != "" && strings.Contains(l, strings.ToLower(k)) {
				return true
			}
		}
	}
	return false
}

// Table maps categories to rules. It is immutable once built.
type Table struct {
	rules    map[string]Rule
	fallback string
}

// NewTable builds a table; fallback must name one of the rules.
func NewTable(rules map[string]Rule, fallback string) (*Table, error) {
	if _, ok := rules[fallback]; !ok {
		return nil, fmt.Errorf("default category %q has no rule", fallback)
	}
	copied := make(map[string]Rule, len(rules))
	for k, v := range rules {
		copied[k] = v
	}
	return &Table{rules: copied, fallback: fallback}, nil
}

// Resolve returns the rule for category, falling back to the default rule.
// The returned name is the category whose rule applies.
func (t *Table) Resolve(category string) (string, Rule) {
	if r, ok := t.rules[category]; ok {
		return category, r
	}
	return t.fallback, t.rules[t.fallback]
}

// Categories returns the configured category names.
func (t *Table) Categories() []string {
	names := make([]string, 0, len(t.rules))
	for k := range t.rules {
		names = append(names, k)
	}
	return names
}

// Engine evaluates classifier labels against the table.
type Engine struct {
	table *Table
}

func NewEngine(table *Table) *Engine {
	return &Engine{table: table}
}

// Evaluate returns nil when labels satisfy the rule for category, or a
// ValidationFailed error naming the submitted category.
func (e *Engine) Evaluate(category string, labels []string) error {
	_, rule := e.table.Resolve(category)
	if rule.Passes(labels) {
		return nil
	}
	return verdict.New(verdict.ValidationFailed, rule.FailureReason(category))
}

type fileRule struct {
	Type       string   `yaml:"type"`
	Waste      []string `yaml:"waste"`
	Disposal   []string `yaml:"disposal"`
	Dry        []string `yaml:"dry_items"`
	Wet        []string `yaml:"wet_items"`
	Containers []string `yaml:"containers"`
}

type fileTable struct {
	Default    string              `yaml:"default"`
	Categories map[string]fileRule `yaml:"categories"`
}

// Parse reads a YAML rule table.
func Parse(data []byte) (*Table, error) {
	var ft fileTable
	if err := yaml.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if ft.Default == "" {
		ft.Default = DefaultCategory
	}
	rules := make(map[string]Rule, len(ft.Categories))
	for name, fr := range ft.Categories {
		switch fr.Type {
		case TypeStandard, "":
			if len(fr.Waste) == 0 || len(fr.Disposal) == 0 {
				return nil, fmt.Errorf("rule %q: standard rules need waste and disposal keywords", name)
			}
			rules[name] = StandardRule{Waste: fr.Waste, Disposal: fr.Disposal}
		case TypeSegregation:
			if len(fr.Containers) == 0 || len(fr.Dry)+len(fr.Wet) == 0 {
				return nil, fmt.Errorf("rule %q: segregation rules need containers and dry or wet items", name)
			}
			rules[name] = SegregationRule{Dry: fr.Dry, Wet: fr.Wet, Containers: fr.Containers}
		default:
			return nil, fmt.Errorf("rule %q: unknown type %q", name, fr.Type)
		}
	}
	return NewTable(rules, ft.Default)
}

// Load returns the rule table from path, or the built-in table when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return Parse(data)
}

// Default returns the built-in rule table.
func Default() *Table {
	t, err := NewTable(map[string]Rule{
		"Plastic & Dry Waste": StandardRule{
			Waste:    []string{"bottle", "plastic", "cup", "carton", "paper", "water_bottle"},
			Disposal: []string{"ashcan", "trash_can", "recycle_bin", "bucket"},
		},
		"E-Waste Drive": StandardRule{
			Waste:    []string{"laptop", "mouse", "keyboard", "monitor", "cellular_telephone", "hard_disc", "ipod"},
			Disposal: []string{"carton", "box", "recycle_bin", "ashcan", "trash_can", "desk"},
		},
		"Organic & Composting": StandardRule{
			Waste:    []string{"banana", "apple", "orange", "fruit", "vegetable", "leaf", "strawberry"},
			Disposal: []string{"soil", "pot", "earth", "garden", "planter", "bucket"},
		},
		"Waste Segregation": SegregationRule{
			Dry:        []string{"bottle", "carton", "paper", "box", "cup", "water_bottle"},
			Wet:        []string{"banana", "apple", "soil", "leaf", "orange"},
			Containers: []string{"ashcan", "trash_can", "bag", "bucket", "recycle_bin"},
		},
		DefaultCategory: StandardRule{
			Waste:    []string{"bottle", "can", "litter", "wrapper", "laptop", "banana", "cup"},
			Disposal: []string{"ashcan", "trash_can", "recycle_bin", "bag", "bucket"},
		},
	}, DefaultCategory)
	if err != nil {
		panic(err)
	}
	return t
}

// EnvironmentalKeywords is the quick-check vocabulary for /verify-action.
var EnvironmentalKeywords = []string{
	"tree", "plant", "water", "bottle", "plastic", "trash", "ashcan", "recycle", "soil", "leaf", "laptop", "carton",
}
