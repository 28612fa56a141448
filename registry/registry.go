// Package registry owns the set of named tables a process serves,
// the way database.Database owns a set of named collections in the
// teacher.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/fulldump/snaptable/table"
)

var ErrTableAlreadyExists = errors.New("table already exists")
var ErrTableNotFound = errors.New("table not found")

type Registry struct {
	mutex         sync.RWMutex
	tables        map[string]*table.Table
	blockCapacity int
}

func New(blockCapacity int) *Registry {
	return &Registry{
		tables:        map[string]*table.Table{},
		blockCapacity: blockCapacity,
	}
}

func (r *Registry) CreateTable(name string) (*table.Table, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.tables[name]; exists {
		return nil, ErrTableAlreadyExists
	}

	t := table.NewTable(name, r.blockCapacity)
	r.tables[name] = t

	return t, nil
}

func (r *Registry) GetTable(name string) (*table.Table, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	t, exists := r.tables[name]
	if !exists {
		return nil, ErrTableNotFound
	}
	return t, nil
}

func (r *Registry) DropTable(name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.tables[name]; !exists {
		return ErrTableNotFound
	}
	delete(r.tables, name)
	return nil
}

func (r *Registry) ListTables() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
