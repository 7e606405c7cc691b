package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// Loader reads a directory of YAML rule files from disk (spec C11: the
// rule library loader collaborator's format was left unspecified by
// spec.md; this is the concrete on-disk format this repository ships).
// One rule per *.yaml file, loaded in filename-sorted order so that two
// rules tying on specificity resolve deterministically (spec invariant 8).
type Loader struct {
	// GADimensions is the fixed, loader-supplied set of field-spec
	// literals matched by exact internal-name equality rather than type
	// ancestry (spec §6 "GA dimension"). Defaults to a small, common set.
	GADimensions []string
}

// NewLoader returns a Loader with the default GA-dimension set.
func NewLoader() *Loader {
	return &Loader{
		GADimensions: []string{"latitude", "longitude", "created_at"},
	}
}

// IsGADimension reports whether s names a GA dimension literal.
func (l *Loader) IsGADimension(s string) bool {
	for _, d := range l.GADimensions {
		if d == s {
			return true
		}
	}
	return false
}

// LoadDir reads every *.yaml file in dir, in filename-sorted order, and
// returns the decoded rules. A malformed file is a load-time error,
// propagated to the caller unchanged (spec §7: catalog/loader failures are
// not defensively handled).
func (l *Loader) LoadDir(dir string) ([]Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("rules: reading rule directory %q: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]Rule, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("rules: reading %q: %w", path, err)
		}
		rule, err := parseRule(data)
		if err != nil {
			return nil, fmt.Errorf("rules: parsing %q: %w", path, err)
		}
		if rule.Name == "" {
			rule.Name = strings.TrimSuffix(name, ".yaml")
		}
		out = append(out, rule)
	}
	return out, nil
}

// --- YAML wire format -------------------------------------------------
//
// Rules are stored as flat lists keyed by an explicit "id" field, rather
// than as YAML maps, so identifier order survives decoding without a
// custom map type (gopkg.in/yaml.v3 does not preserve map key order).

type ruleDoc struct {
	Name        string          `yaml:"name"`
	TableType   string          `yaml:"table_type"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	MaxScore    int             `yaml:"max_score"`
	Dimensions  []dimensionDoc  `yaml:"dimensions"`
	Metrics     []definitionDoc `yaml:"metrics"`
	Filters     []definitionDoc `yaml:"filters"`
	Cards       []cardDoc       `yaml:"cards"`
}

type dimensionDoc struct {
	ID        string   `yaml:"id"`
	FieldType []string `yaml:"field_type"`
	Named     string   `yaml:"named"`
	LinksTo   string   `yaml:"links_to"`
	Score     int      `yaml:"score"`
}

type definitionDoc struct {
	ID       string `yaml:"id"`
	Template string `yaml:"template"`
	Score    int    `yaml:"score"`
}

type orderByDoc struct {
	Identifier string `yaml:"identifier"`
	Direction  string `yaml:"direction"`
}

type cardDoc struct {
	ID            string         `yaml:"id"`
	Metrics       []string       `yaml:"metrics"`
	Filters       []string       `yaml:"filters"`
	Dimensions    []string       `yaml:"dimensions"`
	Query         string         `yaml:"query"`
	Limit         *int           `yaml:"limit"`
	OrderBy       []orderByDoc   `yaml:"order_by"`
	Score         int            `yaml:"score"`
	Title         string         `yaml:"title"`
	Description   string         `yaml:"description"`
	Visualization map[string]any `yaml:"visualization"`
}

func parseRule(data []byte) (Rule, error) {
	var doc ruleDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Rule{}, err
	}

	rule := Rule{
		Name:        doc.Name,
		TableType:   xtype.Type(doc.TableType),
		Title:       doc.Title,
		Description: doc.Description,
		MaxScore:    doc.MaxScore,
		Dimensions:  make(map[string][]Dimension, len(doc.Dimensions)),
		Metrics:     make(map[string][]Definition, len(doc.Metrics)),
		Filters:     make(map[string][]Definition, len(doc.Filters)),
		Cards:       make(map[string]CardSpec, len(doc.Cards)),
	}

	for _, d := range doc.Dimensions {
		dim := Dimension{Score: d.Score, LinksTo: xtype.Type(d.LinksTo)}
		for _, ft := range d.FieldType {
			dim.FieldType = append(dim.FieldType, xtype.Type(ft))
		}
		if d.Named != "" {
			re, err := regexp.Compile("(?i)" + d.Named)
			if err != nil {
				return Rule{}, fmt.Errorf("dimension %q: compiling named pattern %q: %w", d.ID, d.Named, err)
			}
			dim.NamedSource = d.Named
			dim.Named = re
		}
		if _, ok := rule.Dimensions[d.ID]; !ok {
			rule.DimensionOrder = append(rule.DimensionOrder, d.ID)
		}
		rule.Dimensions[d.ID] = append(rule.Dimensions[d.ID], dim)
	}

	for _, m := range doc.Metrics {
		rule.Metrics[m.ID] = append(rule.Metrics[m.ID], Definition{Template: m.Template, Score: m.Score})
	}
	for _, f := range doc.Filters {
		rule.Filters[f.ID] = append(rule.Filters[f.ID], Definition{Template: f.Template, Score: f.Score})
	}

	for _, c := range doc.Cards {
		spec := CardSpec{
			Name:          c.ID,
			Metrics:       c.Metrics,
			Filters:       c.Filters,
			Dimensions:    c.Dimensions,
			Query:         c.Query,
			Limit:         c.Limit,
			Score:         c.Score,
			Title:         c.Title,
			Description:   c.Description,
			Visualization: c.Visualization,
		}
		for _, ob := range c.OrderBy {
			spec.OrderBy = append(spec.OrderBy, OrderSpec{Identifier: ob.Identifier, Direction: ob.Direction})
		}
		if _, ok := rule.Cards[c.ID]; !ok {
			rule.CardOrder = append(rule.CardOrder, c.ID)
		}
		rule.Cards[c.ID] = spec
	}

	return rule, nil
}
