package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

//go:embed sql/schema.sql
var schemaSQL string

var recordColumns = []string{
	"id", "entity", "code", "year", "deaths", "incidence",
	"prevalence", "has_prevalence", "created_at", "updated_at",
}

// sqliteStore implements types.Store on a SQLite database.
// NaN numbers are stored as NULL, as are infinities, which read back as NaN;
// has_prevalence distinguishes a missing prevalence from a NaN one.
type sqliteStore struct {
	db       *sql.DB
	sq       squirrel.StatementBuilderType
	timeFunc func() time.Time
	idFunc   func() string
}

// NewSQLite opens (creating if needed) a SQLite store at dbPath.
func NewSQLite(dbPath string, opts ...Option) (types.Store, error) {
	o := newOptions(opts)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Single writer connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &sqliteStore{
		db:       db,
		sq:       squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		timeFunc: o.timeFunc,
		idFunc:   o.idFunc,
	}, nil
}

func (s *sqliteStore) Create(ctx context.Context, rec types.Record) (string, error) {
	now := s.timeFunc()
	rec.ID = s.idFunc()

	prevalence, hasPrevalence := prevalenceColumns(rec.Prevalence)
	query, args, err := s.sq.Insert("records").
		Columns(recordColumns...).
		Values(rec.ID, rec.Entity, rec.Code, rec.Year, nullable(rec.Deaths), nullable(rec.Incidence),
			prevalence, hasPrevalence, now.UnixNano(), now.UnixNano()).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert record: %w", err)
	}
	return rec.ID, nil
}

func (s *sqliteStore) ListAll(ctx context.Context) ([]types.Record, error) {
	query, args, err := s.sq.Select(recordColumns...).From("records").OrderBy("seq").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []types.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (types.Record, error) {
	query, args, err := s.sq.Select(recordColumns...).From("records").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return types.Record{}, fmt.Errorf("failed to build select: %w", err)
	}

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return rec, err
}

func (s *sqliteStore) Update(ctx context.Context, id string, upd types.RecordUpdate) error {
	set := map[string]interface{}{
		"entity":     upd.Entity,
		"code":       upd.Code,
		"year":       upd.Year,
		"deaths":     nullable(upd.Deaths),
		"incidence":  nullable(upd.Incidence),
		"updated_at": s.timeFunc().UnixNano(),
	}
	if upd.Prevalence != nil {
		set["prevalence"], set["has_prevalence"] = prevalenceColumns(upd.Prevalence)
	}

	query, args, err := s.sq.Update("records").SetMap(set).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	return s.execOne(ctx, id, query, args)
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	query, args, err := s.sq.Delete("records").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	return s.execOne(ctx, id, query, args)
}

// execOne runs a statement that must touch exactly the record with id.
func (s *sqliteStore) execOne(ctx context.Context, id, query string, args []interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return nil
}

// Close releases database resources
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (types.Record, error) {
	var (
		rec                           types.Record
		deaths, incidence, prevalence sql.NullFloat64
		hasPrevalence                 bool
		createdAt, updatedAt          int64
	)
	err := row.Scan(&rec.ID, &rec.Entity, &rec.Code, &rec.Year, &deaths, &incidence,
		&prevalence, &hasPrevalence, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.Deaths = fromNullable(deaths)
	rec.Incidence = fromNullable(incidence)
	if hasPrevalence {
		p := fromNullable(prevalence)
		rec.Prevalence = &p
	}
	rec.CreatedAt = time.Unix(0, createdAt)
	rec.UpdatedAt = time.Unix(0, updatedAt)
	return rec, nil
}

func nullable(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func prevalenceColumns(p *float64) (interface{}, bool) {
	if p == nil {
		return nil, false
	}
	return nullable(*p), true
}
