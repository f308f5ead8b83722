package records

import (
	"facultyfolio/internal/storage"
)

// Store holds one Service per record kind, keyed by URL path segment.
type Store struct {
	services map[string]*Service
}

// NewStore opens every kind's table under dbDir and wires the services
// to the given blob store.
func NewStore(dbDir string, blobs BlobStore, quotas storage.Quotas) (*Store, error) {
	attach := NewCoordinator(blobs, quotas.MaxUploadBytes, quotas.MaxFilesPerRecord)
	services := make(map[string]*Service, len(Kinds()))
	for _, schema := range Kinds() {
		repo, err := NewRepository(schema, dbDir)
		if err != nil {
			return nil, err
		}
		services[schema.Path] = NewService(schema, repo, attach)
	}
	return &Store{services: services}, nil
}

// Service returns the service for the kind served under the given URL
// path segment, or nil.
func (s *Store) Service(path string) *Service {
	return s.services[path]
}

// Services returns one service per kind, in registry order.
func (s *Store) Services() []*Service {
	out := make([]*Service, 0, len(s.services))
	for _, schema := range Kinds() {
		out = append(out, s.services[schema.Path])
	}
	return out
}
