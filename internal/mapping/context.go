package mapping

import (
	"sync"

	"crate-schema/internal/apperrors"
)

// Context is the registry of persistent entities. It is filled once at
// startup and only read afterwards.
type Context struct {
	mu       sync.RWMutex
	entities []*PersistentEntity
	byName   map[string]*PersistentEntity
	byTable  map[string]*PersistentEntity
}

func NewContext() *Context {
	return &Context{
		byName:  make(map[string]*PersistentEntity),
		byTable: make(map[string]*PersistentEntity),
	}
}

// Register derives the descriptor of v from its struct tags and adds it.
func (c *Context) Register(v any, opts ...EntityOption) (*PersistentEntity, error) {
	e, err := NewPersistentEntity(v, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Add(e); err != nil {
		return nil, err
	}
	return e, nil
}

// RegisterSpecs builds and adds declared entities. Nothing is added unless
// every EntitySpec is valid and no entity or table name collides.
func (c *Context) RegisterSpecs(specs []EntitySpec) error {
	built := make([]*PersistentEntity, 0, len(specs))
	for _, spec := range specs {
		e, err := Build(spec)
		if err != nil {
			return err
		}
		built = append(built, e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	names := make(map[string]*PersistentEntity, len(built))
	tables := make(map[string]*PersistentEntity, len(built))
	for _, e := range built {
		if err := c.checkUnique(e, names, tables); err != nil {
			return err
		}
		names[e.Name] = e
		tables[e.TableName] = e
	}
	for _, e := range built {
		c.add(e)
	}
	return nil
}

// Add registers a prebuilt descriptor. Entity and table names must be unique.
func (c *Context) Add(e *PersistentEntity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkUnique(e, nil, nil); err != nil {
		return err
	}
	c.add(e)
	return nil
}

// checkUnique reports a collision with the registered entities or with the
// pending ones. Callers hold c.mu.
func (c *Context) checkUnique(e *PersistentEntity, pendingNames, pendingTables map[string]*PersistentEntity) error {
	if _, ok := c.byName[e.Name]; ok {
		return &apperrors.MappingError{Entity: e.Name, Reason: "entity already registered"}
	}
	if _, ok := pendingNames[e.Name]; ok {
		return &apperrors.MappingError{Entity: e.Name, Reason: "entity declared twice"}
	}
	other, ok := c.byTable[e.TableName]
	if !ok {
		other, ok = pendingTables[e.TableName]
	}
	if ok {
		return &apperrors.MappingError{Entity: e.Name, Reason: "table '" + e.TableName + "' is already mapped by " + other.Name}
	}
	return nil
}

func (c *Context) add(e *PersistentEntity) {
	c.entities = append(c.entities, e)
	c.byName[e.Name] = e
	c.byTable[e.TableName] = e
}

// PersistentEntities returns all entities in registration order.
func (c *Context) PersistentEntities() []*PersistentEntity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*PersistentEntity(nil), c.entities...)
}

func (c *Context) PersistentEntity(name string) (*PersistentEntity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byName[name]
	return e, ok
}

func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}
