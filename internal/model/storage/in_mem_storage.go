package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type InMemStorage struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields
}

func NewInMemStorage() *InMemStorage {
	return &InMemStorage{collections: make(map[string]map[string]Fields)}
}

func (s *InMemStorage) Get(_ context.Context, path string) (Document, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Path: DocPath(collection, id), Fields: fields.clone()}, nil
}

func (s *InMemStorage) Set(_ context.Context, path string, fields Fields) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(collection, id, fields.clone())
	return nil
}

// Merge overwrites only the given fields, creating the document if needed.
func (s *InMemStorage) Merge(_ context.Context, path string, fields Fields) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.collections[collection][id]
	if !ok {
		current = make(Fields, len(fields))
	}
	for k, v := range fields {
		current[k] = v
	}
	s.put(collection, id, current)
	return nil
}

func (s *InMemStorage) Add(_ context.Context, collection string, fields Fields) (Document, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(collection, id, fields.clone())
	return Document{ID: id, Path: DocPath(collection, id), Fields: fields.clone()}, nil
}

func (s *InMemStorage) Delete(_ context.Context, path string) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

// DeleteAll removes every existing path and reports how many were removed.
func (s *InMemStorage) DeleteAll(_ context.Context, paths ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, path := range paths {
		collection, id, err := splitPath(path)
		if err != nil {
			return removed, err
		}
		if _, ok := s.collections[collection][id]; ok {
			delete(s.collections[collection], id)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemStorage) Query(_ context.Context, q Query) ([]Document, error) {
	s.mu.RLock()
	docs := make([]Document, 0, len(s.collections[q.Collection]))
	for id, fields := range s.collections[q.Collection] {
		docs = append(docs, Document{ID: id, Path: DocPath(q.Collection, id), Fields: fields.clone()})
	}
	s.mu.RUnlock()

	return applyQuery(docs, q), nil
}

func (s *InMemStorage) Close() error {
	return nil
}

func (s *InMemStorage) put(collection, id string, fields Fields) {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]Fields)
		s.collections[collection] = docs
	}
	docs[id] = fields
}
