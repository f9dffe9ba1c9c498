// Package sqlite implements storage.Store on a local SQLite file using the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/storage"
)

// Store implements storage.Store.
type Store struct {
	db *sql.DB
}

// New opens the database at dsn and configures WAL mode.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const createShelters = `CREATE TABLE IF NOT EXISTS shelters (
	shelter_name TEXT NOT NULL,
	care_addr    TEXT,
	region       TEXT,
	lat          REAL,
	lon          REAL,
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
	notice_date   TEXT,
	sex           TEXT,
	process_state TEXT,
	care_addr     TEXT
)`

// Migrate creates both tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createShelters+";\n"+createAnimals)
	return eris.Wrap(err, "sqlite: migrate")
}

// ReplaceSnapshot deletes and reloads each non-empty table in one
// transaction.
func (s *Store) ReplaceSnapshot(ctx context.Context, animals []domain.AnimalRecord, shelters []domain.ShelterSummary) error {
	if len(animals) == 0 && len(shelters) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if len(shelters) > 0 {
		rows := make([][]any, len(shelters))
		for i, sh := range shelters {
			lat, lon := storage.LatLon(sh.Geo)
			rows[i] = []any{
				sh.Name, sh.Address, sh.Region, lat, lon, string(sh.GeoSource),
				sh.Count, sh.LongTerm, sh.Adopted, sh.Species, sh.ImageURL,
				sh.RegNo, sh.Phone, sh.DataStdDate,
			}
		}
		if err := replaceTable(ctx, tx, createShelters, storage.TableShelters, storage.ShelterColumns, rows); err != nil {
			return err
		}
	}
	if len(animals) > 0 {
		rows := make([][]any, len(animals))
		for i, a := range animals {
			rows[i] = []any{
				a.DesertionNo, a.ShelterName, a.AnimalName, a.Species, a.Age,
				a.ImageURL, a.Personality, a.Story, storage.FormatDate(a.NoticeDate), a.Sex,
				a.ProcessState, a.CareAddr,
			}
		}
		if err := replaceTable(ctx, tx, createAnimals, storage.TableAnimals, storage.AnimalColumns, rows); err != nil {
			return err
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func replaceTable(ctx context.Context, tx *sql.Tx, create, table string, columns []string, rows [][]any) error {
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return eris.Wrapf(err, "sqlite: create %s", table)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return eris.Wrapf(err, "sqlite: clear %s", table)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert %s", table)
		}
	}
	return nil
}

const selectShelters = `SELECT shelter_name, COALESCE(care_addr, ''), COALESCE(region, ''), lat, lon,
	COALESCE(geo_source, ''), count, long_term, adopted, COALESCE(species, ''),
	COALESCE(image_url, ''), COALESCE(care_reg_no, ''), COALESCE(care_tel, ''), COALESCE(data_std_dt, '')
FROM shelters ORDER BY shelter_name`

// Shelters returns every stored shelter row ordered by name.
func (s *Store) Shelters(ctx context.Context) ([]domain.ShelterSummary, error) {
	rows, err := s.db.QueryContext(ctx, selectShelters)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query shelters")
	}
	defer rows.Close()

	var out []domain.ShelterSummary
	for rows.Next() {
		var (
			sh       domain.ShelterSummary
			lat, lon sql.NullFloat64
			source   string
		)
		if err := rows.Scan(&sh.Name, &sh.Address, &sh.Region, &lat, &lon, &source,
			&sh.Count, &sh.LongTerm, &sh.Adopted, &sh.Species, &sh.ImageURL,
			&sh.RegNo, &sh.Phone, &sh.DataStdDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan shelter")
		}
		if lat.Valid && lon.Valid {
			sh.Geo = &domain.Geo{Lat: lat.Float64, Lon: lon.Float64}
		}
		sh.GeoSource = domain.GeoSource(source)
		out = append(out, sh)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate shelters")
}

const selectAnimals = `SELECT COALESCE(desertion_no, ''), shelter_name, COALESCE(animal_name, ''), COALESCE(species, ''),
	COALESCE(age, ''), COALESCE(image_url, ''), COALESCE(personality, ''), COALESCE(story, ''), COALESCE(notice_date, ''),
	COALESCE(sex, ''), COALESCE(process_state, ''), COALESCE(care_addr, '')
FROM animals ORDER BY shelter_name, desertion_no`

// Animals returns every stored animal row ordered by shelter.
func (s *Store) Animals(ctx context.Context) ([]domain.AnimalRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectAnimals)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query animals")
	}
	defer rows.Close()

	var out []domain.AnimalRecord
	for rows.Next() {
		var (
			a      domain.AnimalRecord
			notice string
		)
		if err := rows.Scan(&a.DesertionNo, &a.ShelterName, &a.AnimalName, &a.Species,
			&a.Age, &a.ImageURL, &a.Personality, &a.Story, &notice,
			&a.Sex, &a.ProcessState, &a.CareAddr); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan animal")
		}
		a.NoticeDate = storage.ParseDate(notice)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate animals")
}

// Columns lists the columns of table in declaration order. An unknown table
// yields an empty list.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: columns of %s", table)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan column")
		}
		cols = append(cols, name)
	}
	return cols, eris.Wrap(rows.Err(), "sqlite: iterate columns")
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
