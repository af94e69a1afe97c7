package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// Postgres reads facility records from the facilities table.
type Postgres struct {
	pool Pool
}

const facilityColumns = `id, COALESCE(uid, ''), name, lat, lon,
	COALESCE(city, ''), COALESCE(region, ''), COALESCE(type, ''), COALESCE(operator, ''),
	COALESCE(specialties, '{}'), COALESCE(procedures, '{}'),
	COALESCE(equipment, '{}'), COALESCE(capabilities, '{}'),
	doctors, beds, COALESCE(org_type, ''), COALESCE(description, ''),
	COALESCE(website, ''), confidence`

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*Postgres, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Ping checks connectivity.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// Facilities implements Source, returning every facility ordered by name.
func (s *Postgres) Facilities(ctx context.Context) ([]facility.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+facilityColumns+` FROM facilities ORDER BY name, id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query facilities")
	}
	defer rows.Close()

	records := []facility.Record{}
	for rows.Next() {
		r, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate facilities")
	}
	zap.L().Info("postgres: loaded facilities", zap.Int("count", len(records)))
	return records, nil
}

// Facility returns one facility by id, or nil when none exists.
func (s *Postgres) Facility(ctx context.Context, id string) (*facility.Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+facilityColumns+` FROM facilities WHERE id = $1`, id)
	r, err := scanFacility(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func scanFacility(row pgx.Row) (facility.Record, error) {
	var r facility.Record
	err := row.Scan(
		&r.ID, &r.UID, &r.Name, &r.Lat, &r.Lon,
		&r.City, &r.Region, &r.Type, &r.Operator,
		&r.Specialties, &r.Procedures, &r.Equipment, &r.Capabilities,
		&r.Doctors, &r.Beds, &r.OrgType, &r.Description,
		&r.Website, &r.Confidence,
	)
	if err != nil {
		return r, eris.Wrap(err, "postgres: scan facility")
	}
	return r, nil
}
