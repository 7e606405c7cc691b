package catalog

import "github.com/google/uuid"

// Builder assembles an InMemory catalog fluently, the way a schema
// service assembles tables/columns during a refresh. Used by the demo
// binary and by tests to stand up a fixture schema without a live
// database connection.
type Builder struct {
	tables  map[uuid.UUID]Table
	fields  map[uuid.UUID]Field
	byTable map[uuid.UUID][]uuid.UUID
	order   []uuid.UUID // table insertion order, for deterministic dumps
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		tables:  make(map[uuid.UUID]Table),
		fields:  make(map[uuid.UUID]Field),
		byTable: make(map[uuid.UUID][]uuid.UUID),
	}
}

// AddTable registers a table and returns the Builder for chaining.
func (b *Builder) AddTable(t Table) *Builder {
	if _, exists := b.tables[t.ID]; !exists {
		b.order = append(b.order, t.ID)
	}
	b.tables[t.ID] = t
	return b
}

// AddField registers a field under its owning table and returns the
// Builder for chaining.
func (b *Builder) AddField(f Field) *Builder {
	b.fields[f.ID] = f
	b.byTable[f.TableID] = append(b.byTable[f.TableID], f.ID)
	return b
}

// Build returns the assembled InMemory catalog.
func (b *Builder) Build() *InMemory {
	byTable := make(map[uuid.UUID][]uuid.UUID, len(b.byTable))
	for k, v := range b.byTable {
		cp := make([]uuid.UUID, len(v))
		copy(cp, v)
		byTable[k] = cp
	}
	return &InMemory{
		tables:  b.tables,
		fields:  b.fields,
		byTable: byTable,
	}
}
