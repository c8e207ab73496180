// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package resource

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore keeps resources in process memory. The devserver uses it when no
// Postgres DSN is configured, and tests use it in place of GormStore.
type MemStore struct {
	mu   sync.RWMutex
	data map[string]Resource
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{data: map[string]Resource{}}
}

func memKey(id, ns string) string {
	return ns + "|" + id
}

func (m *MemStore) Create(r *Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memKey(r.ID, r.Namespace)
	if _, ok := m.data[k]; ok {
		return fmt.Errorf("resource %s already exists in namespace %s", r.ID, r.Namespace)
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	m.data[k] = clone(r)
	return nil
}

func (m *MemStore) Update(r *Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memKey(r.ID, r.Namespace)
	old, ok := m.data[k]
	if !ok {
		return ErrNotFound
	}
	r.CreatedAt = old.CreatedAt
	r.UpdatedAt = time.Now().UTC()
	m.data[k] = clone(r)
	return nil
}

func (m *MemStore) Put(r *Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memKey(r.ID, r.Namespace)
	now := time.Now().UTC()
	if old, ok := m.data[k]; ok {
		r.CreatedAt = old.CreatedAt
	} else {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m.data[k] = clone(r)
	return nil
}

func (m *MemStore) Get(id, service, typ, ns string) (*Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[memKey(id, ns)]
	if !ok || v.Service != service || v.Type != typ {
		return nil, ErrNotFound
	}
	out := clone(&v)
	return &out, nil
}

// List returns matching resources ordered by ID, like GormStore.
func (m *MemStore) List(service, typ, ns string) ([]Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Resource
	for _, v := range m.data {
		if v.Service == service && v.Type == typ && v.Namespace == ns {
			out = append(out, clone(&v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) Delete(id, service, typ, ns string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memKey(id, ns)
	if v, ok := m.data[k]; ok && v.Service == service && v.Type == typ {
		delete(m.data, k)
	}
	return nil
}

func clone(r *Resource) Resource {
	c := *r
	c.Attributes = append([]byte(nil), r.Attributes...)
	return c
}
