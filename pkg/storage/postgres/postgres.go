// Package postgres provides a PostgreSQL implementation of storage.Store.
// It uses pgx/v5 for connection pooling; email uniqueness is enforced by a
// unique index so concurrent signups are arbitrated by the database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/tenantgate/pkg/api"
	"github.com/rhuss/tenantgate/pkg/debug"
	"github.com/rhuss/tenantgate/pkg/storage"
)

// PostgreSQL error codes the store maps onto storage sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store is a PostgreSQL-backed Store.
type Store struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool, queryTimeout: cfg.QueryTimeout}

	if cfg.MigrateOnStart {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// FindUserByEmail looks up a user by normalized email, joining the status
// of the owning tenant.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*api.User, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var (
		u            api.User
		role         string
		tenantStatus string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT u.id, u.email, u.display_name, u.password_hash, u.role,
		       COALESCE(u.tenant_id, ''), u.is_super_admin, u.created_at,
		       COALESCE(t.status, '')
		FROM users u
		LEFT JOIN tenants t ON t.id = u.tenant_id
		WHERE u.email = $1
	`, email).Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &role,
		&u.TenantID, &u.IsSuperAdmin, &u.CreatedAt,
		&tenantStatus,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.Role = api.Role(role)
	u.TenantStatus = api.TenantStatus(tenantStatus)
	return &u, nil
}

// CreateUser inserts a user. Returns storage.ErrConflict on a duplicate
// email and storage.ErrNotFound if the referenced tenant does not exist.
func (s *Store) CreateUser(ctx context.Context, u *api.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	prepareUser(u)

	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (
			id, email, display_name, password_hash, role,
			tenant_id, is_super_admin, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, string(u.Role),
		nullString(u.TenantID), u.IsSuperAdmin, u.CreatedAt,
	)
	if err != nil {
		return mapWriteError("inserting user", err)
	}
	return nil
}

// EnsureUser inserts u unless its email is already taken.
func (s *Store) EnsureUser(ctx context.Context, u *api.User) (bool, error) {
	if err := u.Validate(); err != nil {
		return false, err
	}
	prepareUser(u)

	ctx, cancel := s.bound(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO users (
			id, email, display_name, password_hash, role,
			tenant_id, is_super_admin, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO NOTHING
	`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, string(u.Role),
		nullString(u.TenantID), u.IsSuperAdmin, u.CreatedAt,
	)
	if err != nil {
		return false, mapWriteError("ensuring user", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CreateTenant inserts a tenant. Returns storage.ErrConflict if the ID is
// already in use.
func (s *Store) CreateTenant(ctx context.Context, t *api.Tenant) error {
	if _, err := api.ParseTenantStatus(string(t.Status)); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = api.NewTenantID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		"INSERT INTO tenants (id, name, status, created_at) VALUES ($1, $2, $3, $4)",
		t.ID, t.Name, string(t.Status), t.CreatedAt,
	)
	if err != nil {
		return mapWriteError("inserting tenant", err)
	}

	debug.Log("storage", "tenant created", "tenant_id", t.ID)
	return nil
}

// GetTenant retrieves a tenant by ID. A tenant-scoped caller only sees its
// own tenant.
func (s *Store) GetTenant(ctx context.Context, id string) (*api.Tenant, error) {
	if scope := storage.GetTenant(ctx); scope != "" && scope != id {
		return nil, storage.ErrNotFound
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	t, err := scanTenant(s.pool.QueryRow(ctx,
		"SELECT id, name, status, created_at FROM tenants WHERE id = $1", id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("querying tenant: %w", err)
	}
	return t, nil
}

// ListTenants returns all tenants, newest first.
func (s *Store) ListTenants(ctx context.Context) ([]*api.Tenant, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		"SELECT id, name, status, created_at FROM tenants ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	tenants := []*api.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tenants: %w", err)
	}
	return tenants, nil
}

// UpdateTenantStatus transitions a tenant to the given status.
func (s *Store) UpdateTenantStatus(ctx context.Context, id string, status api.TenantStatus) (*api.Tenant, error) {
	if _, err := api.ParseTenantStatus(string(status)); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	t, err := scanTenant(s.pool.QueryRow(ctx, `
		UPDATE tenants SET status = $2
		WHERE id = $1
		RETURNING id, name, status, created_at
	`, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("updating tenant status: %w", err)
	}
	return t, nil
}

// HealthCheck verifies database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Close releases all database connections.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanTenant(row pgx.Row) (*api.Tenant, error) {
	var (
		t      api.Tenant
		status string
	)
	if err := row.Scan(&t.ID, &t.Name, &status, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Status = api.TenantStatus(status)
	return &t, nil
}

func prepareUser(u *api.User) {
	if u.ID == "" {
		u.ID = api.NewUserID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
}

// mapWriteError translates constraint violations into storage sentinels.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return storage.ErrConflict
		case codeForeignKeyViolation:
			return storage.ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// nullString returns nil for empty strings (SQL NULL), or the string pointer.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
