package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

const facilitiesDDL = `CREATE TABLE IF NOT EXISTS facilities (
	id           TEXT PRIMARY KEY,
	uid          TEXT,
	name         TEXT NOT NULL,
	lat          DOUBLE PRECISION,
	lon          DOUBLE PRECISION,
	city         TEXT,
	region       TEXT,
	type         TEXT,
	operator     TEXT,
	specialties  TEXT[],
	procedures   TEXT[],
	equipment    TEXT[],
	capabilities TEXT[],
	doctors      INTEGER,
	beds         INTEGER,
	org_type     TEXT,
	description  TEXT,
	website      TEXT,
	confidence   DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS facilities_region_idx ON facilities (region)`

// upsertColumns is the COPY column order; facilityRow must match it.
var upsertColumns = []string{
	"id", "uid", "name", "lat", "lon", "city", "region", "type", "operator",
	"specialties", "procedures", "equipment", "capabilities",
	"doctors", "beds", "org_type", "description", "website", "confidence",
}

const upsertTemp = "_tmp_upsert_facilities"

// Migrate creates the facilities table when it does not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, facilitiesDDL); err != nil {
		return eris.Wrap(err, "postgres: migrate facilities")
	}
	return nil
}

// UpsertFacilities writes records in one transaction: COPY into a temp
// table, then INSERT ... ON CONFLICT (id) DO UPDATE. Records are keyed by
// Key(); the first record for a key wins.
func (s *Postgres) UpsertFacilities(ctx context.Context, records []facility.Record) (int64, error) {
	rows := make([][]any, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		key := r.Key()
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, facilityRow(key, r))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE facilities INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{upsertTemp}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: create temp table")
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{upsertTemp}, upsertColumns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: COPY into temp table")
	}

	tag, err := tx.Exec(ctx, upsertSQL())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: INSERT ON CONFLICT")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: upsert: commit tx")
	}

	zap.L().Info("postgres: upserted facilities",
		zap.Int("rows", len(rows)),
		zap.Int64("affected", tag.RowsAffected()),
	)
	return tag.RowsAffected(), nil
}

func upsertSQL() string {
	cols := quoteAndJoin(upsertColumns)
	var set []string
	for _, c := range upsertColumns[1:] {
		id := pgx.Identifier{c}.Sanitize()
		set = append(set, id+" = EXCLUDED."+id)
	}
	return fmt.Sprintf(
		"INSERT INTO facilities (%s) SELECT %s FROM %s ON CONFLICT (id) DO UPDATE SET %s",
		cols, cols, pgx.Identifier{upsertTemp}.Sanitize(), strings.Join(set, ", "),
	)
}

func facilityRow(key string, r facility.Record) []any {
	return []any{
		key, r.UID, r.Name, r.Lat, r.Lon, r.City, r.Region, r.Type, r.Operator,
		nonNil(r.Specialties), nonNil(r.Procedures), nonNil(r.Equipment), nonNil(r.Capabilities),
		r.Doctors, r.Beds, r.OrgType, r.Description, r.Website, r.Confidence,
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
