// Package memory provides an in-memory implementation of storage.Store
// for tests and single-process deployments. Data is lost when the process
// restarts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/storage"
)

// tenantEntry holds a stored tenant and its insertion sequence, used to
// break created_at ties when listing.
type tenantEntry struct {
	tenant api.Tenant
	seq    uint64
}

// Store is an in-memory Store. Email uniqueness is enforced under the
// write lock, so concurrent CreateUser calls for one email yield exactly
// one success.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*api.User // keyed by normalized email
	tenants map[string]*tenantEntry
	seq     uint64
	now     func() time.Time
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:   make(map[string]*api.User),
		tenants: make(map[string]*tenantEntry),
		now:     time.Now,
	}
}

// FindUserByEmail looks up a user by normalized email and joins the owning
// tenant's status.
func (s *Store) FindUserByEmail(_ context.Context, email string) (*api.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return nil, storage.ErrNotFound
	}

	out := *u
	if out.TenantID != "" {
		if e, ok := s.tenants[out.TenantID]; ok {
			out.TenantStatus = e.tenant.Status
		}
	}
	return &out, nil
}

// CreateUser inserts a user. Returns storage.ErrConflict on a duplicate
// email and storage.ErrNotFound if the referenced tenant does not exist.
func (s *Store) CreateUser(_ context.Context, u *api.User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertUserLocked(u)
}

// EnsureUser inserts u unless its email is already taken.
func (s *Store) EnsureUser(_ context.Context, u *api.User) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.Email]; exists {
		return false, nil
	}
	if err := s.insertUserLocked(u); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) insertUserLocked(u *api.User) error {
	if _, exists := s.users[u.Email]; exists {
		return storage.ErrConflict
	}
	if u.TenantID != "" {
		if _, ok := s.tenants[u.TenantID]; !ok {
			return storage.ErrNotFound
		}
	}

	if u.ID == "" {
		u.ID = api.NewUserID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}

	stored := *u
	stored.TenantStatus = ""
	s.users[u.Email] = &stored
	return nil
}

// CreateTenant inserts a tenant. Returns storage.ErrConflict if the ID is
// already in use.
func (s *Store) CreateTenant(_ context.Context, t *api.Tenant) error {
	if _, err := api.ParseTenantStatus(string(t.Status)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = api.NewTenantID()
	}
	if _, exists := s.tenants[t.ID]; exists {
		return storage.ErrConflict
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}

	s.seq++
	s.tenants[t.ID] = &tenantEntry{tenant: *t, seq: s.seq}
	return nil
}

// GetTenant retrieves a tenant by ID. A tenant-scoped caller only sees its
// own tenant.
func (s *Store) GetTenant(ctx context.Context, id string) (*api.Tenant, error) {
	if scope := storage.GetTenant(ctx); scope != "" && scope != id {
		return nil, storage.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tenants[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	t := e.tenant
	return &t, nil
}

// ListTenants returns all tenants ordered by creation time, newest first.
func (s *Store) ListTenants(_ context.Context) ([]*api.Tenant, error) {
	s.mu.RLock()
	entries := make([]*tenantEntry, 0, len(s.tenants))
	for _, e := range s.tenants {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.tenant.CreatedAt.Equal(b.tenant.CreatedAt) {
			return a.tenant.CreatedAt.After(b.tenant.CreatedAt)
		}
		return a.seq > b.seq
	})

	out := make([]*api.Tenant, len(entries))
	for i, e := range entries {
		t := e.tenant
		out[i] = &t
	}
	return out, nil
}

// UpdateTenantStatus transitions a tenant to the given status.
func (s *Store) UpdateTenantStatus(_ context.Context, id string, status api.TenantStatus) (*api.Tenant, error) {
	if _, err := api.ParseTenantStatus(string(status)); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tenants[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	e.tenant.Status = status
	t := e.tenant
	return &t, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
