package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"attest/internal/certification/models"
	id "attest/pkg/domain"
	"attest/pkg/platform/sentinel"
)

// InMemoryStore holds certification trees serialized per save, so callers
// never share live object graphs with the store.
type InMemoryStore struct {
	mu    sync.RWMutex
	certs map[id.CertificationID][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{certs: make(map[id.CertificationID][]byte)}
}

func (s *InMemoryStore) Save(_ context.Context, cert *models.Certification) error {
	for _, it := range cert.Items {
		it.Persisted = true
	}
	payload, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("marshal certification: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[cert.ID] = payload
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, certID id.CertificationID) (*models.Certification, error) {
	s.mu.RLock()
	payload, ok := s.certs[certID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	var cert models.Certification
	if err := json.Unmarshal(payload, &cert); err != nil {
		return nil, fmt.Errorf("unmarshal certification: %w", err)
	}
	return &cert, nil
}

func (s *InMemoryStore) Children(_ context.Context, parentID id.CertificationID) ([]ChildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var children []ChildRecord
	for _, payload := range s.certs {
		var cert models.Certification
		if err := json.Unmarshal(payload, &cert); err != nil {
			return nil, fmt.Errorf("unmarshal certification: %w", err)
		}
		if cert.Parent == parentID {
			children = append(children, ChildRecord{ID: cert.ID, Signed: cert.Signed})
		}
	}
	return children, nil
}
