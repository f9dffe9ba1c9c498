// Package postgres implements storage.Store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/storage"
)

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Store implements storage.Store.
type Store struct {
	pool Pool
}

// New connects to connString and verifies the connection.
func New(ctx context.Context, connString string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool Pool) *Store {
	return &Store{pool: pool}
}

const createShelters = `CREATE TABLE IF NOT EXISTS shelters (
	shelter_name TEXT NOT NULL,
	care_addr    TEXT,
	region       TEXT,
	lat          DOUBLE PRECISION,
	lon          DOUBLE PRECISION,
	geo_source   TEXT,
	count        INTEGER NOT NULL DEFAULT 0,
	long_term    INTEGER NOT NULL DEFAULT 0,
	adopted      INTEGER NOT NULL DEFAULT 0,
	species      TEXT,
	image_url    TEXT,
	care_reg_no  TEXT,
	care_tel     TEXT,
	data_std_dt  TEXT
)`

const createAnimals = `CREATE TABLE IF NOT EXISTS animals (
	desertion_no  TEXT,
	shelter_name  TEXT NOT NULL,
	animal_name   TEXT,
	species       TEXT,
	age           TEXT,
	image_url     TEXT,
	personality   TEXT,
	story         TEXT,
	notice_date   DATE,
	sex           TEXT,
	process_state TEXT,
	care_addr     TEXT
)`

// Migrate creates both tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createShelters, createAnimals} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: migrate")
		}
	}
	return nil
}

// ReplaceSnapshot truncates and reloads each non-empty table in one
// transaction.
func (s *Store) ReplaceSnapshot(ctx context.Context, animals []domain.AnimalRecord, shelters []domain.ShelterSummary) error {
	if len(animals) == 0 && len(shelters) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(shelters) > 0 {
		rows := make([][]any, len(shelters))
		for i, sh := range shelters {
			rows[i] = shelterRow(sh)
		}
		if err := replaceTable(ctx, tx, createShelters, storage.TableShelters, storage.ShelterColumns, rows); err != nil {
			return err
		}
	}
	if len(animals) > 0 {
		rows := make([][]any, len(animals))
		for i, a := range animals {
			rows[i] = animalRow(a)
		}
		if err := replaceTable(ctx, tx, createAnimals, storage.TableAnimals, storage.AnimalColumns, rows); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	return nil
}

func replaceTable(ctx context.Context, tx pgx.Tx, create, table string, columns []string, rows [][]any) error {
	if _, err := tx.Exec(ctx, create); err != nil {
		return eris.Wrapf(err, "postgres: create %s", table)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+pgx.Identifier{table}.Sanitize()); err != nil {
		return eris.Wrapf(err, "postgres: truncate %s", table)
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return eris.Wrapf(err, "postgres: COPY INTO %s", table)
	}
	if n != int64(len(rows)) {
		return eris.Errorf("postgres: COPY INTO %s: wrote %d of %d rows", table, n, len(rows))
	}
	return nil
}

func shelterRow(s domain.ShelterSummary) []any {
	lat, lon := storage.LatLon(s.Geo)
	return []any{
		s.Name, s.Address, s.Region, lat, lon, string(s.GeoSource),
		s.Count, s.LongTerm, s.Adopted, s.Species, s.ImageURL,
		s.RegNo, s.Phone, s.DataStdDate,
	}
}

func animalRow(a domain.AnimalRecord) []any {
	return []any{
		a.DesertionNo, a.ShelterName, a.AnimalName, a.Species, a.Age,
		a.ImageURL, a.Personality, a.Story, a.NoticeDate, a.Sex,
		a.ProcessState, a.CareAddr,
	}
}

const selectShelters = `SELECT shelter_name, COALESCE(care_addr, ''), COALESCE(region, ''), lat, lon,
	COALESCE(geo_source, ''), count, long_term, adopted, COALESCE(species, ''),
	COALESCE(image_url, ''), COALESCE(care_reg_no, ''), COALESCE(care_tel, ''), COALESCE(data_std_dt, '')
FROM shelters ORDER BY shelter_name`

// Shelters returns every stored shelter row ordered by name.
func (s *Store) Shelters(ctx context.Context) ([]domain.ShelterSummary, error) {
	rows, err := s.pool.Query(ctx, selectShelters)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query shelters")
	}
	defer rows.Close()

	var out []domain.ShelterSummary
	for rows.Next() {
		var (
			sh       domain.ShelterSummary
			lat, lon *float64
			source   string
		)
		if err := rows.Scan(&sh.Name, &sh.Address, &sh.Region, &lat, &lon, &source,
			&sh.Count, &sh.LongTerm, &sh.Adopted, &sh.Species, &sh.ImageURL,
			&sh.RegNo, &sh.Phone, &sh.DataStdDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan shelter")
		}
		sh.Geo = storage.GeoFrom(lat, lon)
		sh.GeoSource = domain.GeoSource(source)
		out = append(out, sh)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate shelters")
}

const selectAnimals = `SELECT COALESCE(desertion_no, ''), shelter_name, COALESCE(animal_name, ''), COALESCE(species, ''),
	COALESCE(age, ''), COALESCE(image_url, ''), COALESCE(personality, ''), COALESCE(story, ''), notice_date,
	COALESCE(sex, ''), COALESCE(process_state, ''), COALESCE(care_addr, '')
FROM animals ORDER BY shelter_name, desertion_no`

// Animals returns every stored animal row ordered by shelter.
func (s *Store) Animals(ctx context.Context) ([]domain.AnimalRecord, error) {
	rows, err := s.pool.Query(ctx, selectAnimals)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query animals")
	}
	defer rows.Close()

	var out []domain.AnimalRecord
	for rows.Next() {
		var (
			a      domain.AnimalRecord
			notice *time.Time
		)
		if err := rows.Scan(&a.DesertionNo, &a.ShelterName, &a.AnimalName, &a.Species,
			&a.Age, &a.ImageURL, &a.Personality, &a.Story, &notice,
			&a.Sex, &a.ProcessState, &a.CareAddr); err != nil {
			return nil, eris.Wrap(err, "postgres: scan animal")
		}
		if notice != nil {
			d := time.Date(notice.Year(), notice.Month(), notice.Day(), 0, 0, 0, 0, domain.KST)
			a.NoticeDate = &d
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate animals")
}

// Columns lists the columns of table in ordinal order. An unknown table
// yields an empty list.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: columns of %s", table)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan column")
		}
		cols = append(cols, name)
	}
	return cols, eris.Wrap(rows.Err(), "postgres: iterate columns")
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
