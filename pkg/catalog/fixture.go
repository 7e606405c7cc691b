package catalog

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/xray-engine/pkg/xtype"
)

// fixtureDoc is the on-disk shape of a fixture catalog (spec §11): tables
// keyed by a short name the rest of the document references, each carrying
// its own fields. Foreign keys are declared on the referencing field via
// fk_target, a "table.field" pair resolved against the other entries in the
// same document. There is no database-identity concept in a single-file
// fixture, so every table shares one generated DatabaseID.
type fixtureDoc struct {
	Tables []fixtureTable `yaml:"tables"`
}

type fixtureTable struct {
	Name        string         `yaml:"name"`
	DisplayName string         `yaml:"display_name"`
	EntityType  string         `yaml:"entity_type"`
	Fields      []fixtureField `yaml:"fields"`
}

type fixtureField struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	BaseType    string `yaml:"base_type"`
	SpecialType string `yaml:"special_type"`
	FKTarget    string `yaml:"fk_target"` // "table.field", optional
}

// LoadFixture reads a fixture catalog YAML file (spec §11) and returns the
// assembled InMemory catalog plus the id assigned to the table named
// rootTableName, so the demo binary can hand that id to xray.Generate.
func LoadFixture(path, rootTableName string) (*InMemory, uuid.UUID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("catalog: reading fixture %q: %w", path, err)
	}

	var doc fixtureDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, uuid.Nil, fmt.Errorf("catalog: parsing fixture %q: %w", path, err)
	}

	databaseID := uuid.New()
	b := NewBuilder()

	tableIDs := make(map[string]uuid.UUID, len(doc.Tables))
	fieldIDs := make(map[string]uuid.UUID) // "table.field" -> id
	for _, t := range doc.Tables {
		id := uuid.New()
		tableIDs[t.Name] = id
		b.AddTable(Table{
			ID:          id,
			Name:        t.Name,
			DisplayName: displayOr(t.DisplayName, t.Name),
			DatabaseID:  databaseID,
			EntityType:  xtype.Type(t.EntityType),
		})
		for _, f := range t.Fields {
			fieldIDs[t.Name+"."+f.Name] = uuid.New()
		}
	}

	var rootID uuid.UUID
	var rootFound bool
	for _, t := range doc.Tables {
		tableID := tableIDs[t.Name]
		if t.Name == rootTableName {
			rootID, rootFound = tableID, true
		}
		for _, f := range t.Fields {
			field := Field{
				ID:          fieldIDs[t.Name+"."+f.Name],
				TableID:     tableID,
				Name:        f.Name,
				DisplayName: displayOr(f.DisplayName, f.Name),
				BaseType:    xtype.Type(f.BaseType),
				SpecialType: xtype.Type(f.SpecialType),
			}
			if f.FKTarget != "" {
				targetID, ok := fieldIDs[f.FKTarget]
				if !ok {
					return nil, uuid.Nil, fmt.Errorf("catalog: fixture %q: field %s.%s references unknown fk_target %q", path, t.Name, f.Name, f.FKTarget)
				}
				field.FKTargetFieldID = &targetID
			}
			b.AddField(field)
		}
	}
	if !rootFound {
		return nil, uuid.Nil, fmt.Errorf("catalog: fixture %q: root table %q not declared", path, rootTableName)
	}

	return b.Build(), rootID, nil
}

func displayOr(display, fallback string) string {
	if display != "" {
		return display
	}
	return fallback
}
