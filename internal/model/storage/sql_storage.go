package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"max.ks1230/spending-tracker/internal/logger"

	// postgres driver
	_ "github.com/lib/pq"
	// sqlite driver
	_ "modernc.org/sqlite"
)

const (
	dsnTemplate    = "user=%s password=%s host=%s dbname=%s sslmode=disable"
	documentsTable = "documents"

	DialectPostgres = "postgres"
	DialectSqlite   = "sqlite"
)

type postgresConfig interface {
	Host() string
	Username() string
	Password() string
	Database() string
}

type sqliteConfig interface {
	Path() string
}

// SQLStorage keeps every document as a JSON row of a single table.
type SQLStorage struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

func NewPostgresStorage(config postgresConfig) (*SQLStorage, error) {
	dsn := fmt.Sprintf(dsnTemplate,
		config.Username(),
		config.Password(),
		config.Host(),
		config.Database())

	if err := RunMigrations(DialectPostgres, dsn); err != nil {
		return nil, errors.Wrap(err, "cannot migrate database")
	}

	db, err := sql.Open(DialectPostgres, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	return newSQLStorage(db, sq.Dollar), nil
}

func NewSqliteStorage(config sqliteConfig) (*SQLStorage, error) {
	if err := RunMigrations(DialectSqlite, config.Path()); err != nil {
		return nil, errors.Wrap(err, "cannot migrate database")
	}

	db, err := sql.Open(DialectSqlite, config.Path())
	if err != nil {
		return nil, errors.Wrap(err, "cannot open database")
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "cannot open database")
	}
	return newSQLStorage(db, sq.Question), nil
}

func newSQLStorage(db *sql.DB, placeholder sq.PlaceholderFormat) *SQLStorage {
	return &SQLStorage{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func (s *SQLStorage) Get(ctx context.Context, path string) (Document, error) {
	collection, id, err := splitPath(path)
	if err != nil {
		return Document{}, err
	}

	fields, err := s.load(ctx, s.db, DocPath(collection, id))
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Path: DocPath(collection, id), Fields: fields}, nil
}

func (s *SQLStorage) Set(ctx context.Context, path string, fields Fields) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}
	return errors.Wrap(s.upsert(ctx, s.db, collection, id, fields), "set document")
}

func (s *SQLStorage) Merge(ctx context.Context, path string, fields Fields) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "merge document")
	}
	defer rollback(tx)

	current, err := s.load(ctx, tx, DocPath(collection, id))
	if errors.Is(err, ErrNotFound) {
		current = make(Fields, len(fields))
	} else if err != nil {
		return errors.Wrap(err, "merge document")
	}
	for k, v := range fields {
		current[k] = v
	}

	if err = s.upsert(ctx, tx, collection, id, current); err != nil {
		return errors.Wrap(err, "merge document")
	}
	return errors.Wrap(tx.Commit(), "merge document")
}

func (s *SQLStorage) Add(ctx context.Context, collection string, fields Fields) (Document, error) {
	id := uuid.NewString()
	data, err := encodeFields(fields)
	if err != nil {
		return Document{}, errors.Wrap(err, "add document")
	}

	query := s.builder.Insert(documentsTable).
		Columns("path", "collection", "id", "data", "updated_at").
		Values(DocPath(collection, id), collection, id, data, time.Now().UTC())

	if _, err = query.RunWith(s.db).ExecContext(ctx); err != nil {
		return Document{}, errors.Wrap(err, "add document")
	}
	return Document{ID: id, Path: DocPath(collection, id), Fields: fields.clone()}, nil
}

func (s *SQLStorage) Delete(ctx context.Context, path string) error {
	collection, id, err := splitPath(path)
	if err != nil {
		return err
	}

	res, err := s.builder.Delete(documentsTable).
		Where(sq.Eq{"path": DocPath(collection, id)}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrap(err, "delete document")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete document")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStorage) DeleteAll(ctx context.Context, paths ...string) (int, error) {
	if len(paths) == 0 {
		return 0, nil
	}
	normalized := make([]string, 0, len(paths))
	for _, p := range paths {
		collection, id, err := splitPath(p)
		if err != nil {
			return 0, err
		}
		normalized = append(normalized, DocPath(collection, id))
	}

	res, err := s.builder.Delete(documentsTable).
		Where(sq.Eq{"path": normalized}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "delete documents")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "delete documents")
}

func (s *SQLStorage) Query(ctx context.Context, q Query) ([]Document, error) {
	query := s.builder.Select("id", "data").
		From(documentsTable).
		Where(sq.Eq{"collection": q.Collection})

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "query documents")
	}
	defer func() {
		rowErr := rows.Close()
		if rowErr != nil {
			logger.Error("error closing rows", zap.Error(rowErr))
		}
	}()

	docs := make([]Document, 0)
	for rows.Next() {
		var id, data string
		if err = rows.Scan(&id, &data); err != nil {
			return nil, errors.Wrap(err, "query documents")
		}
		fields, err := decodeFields(data)
		if err != nil {
			return nil, errors.Wrapf(err, "query documents: %s", id)
		}
		docs = append(docs, Document{ID: id, Path: DocPath(q.Collection, id), Fields: fields})
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "query documents")
	}

	return applyQuery(docs, q), nil
}

func (s *SQLStorage) load(ctx context.Context, runner sq.BaseRunner, path string) (Fields, error) {
	var data string
	err := s.builder.Select("data").
		From(documentsTable).
		Where(sq.Eq{"path": path}).
		RunWith(runner).
		QueryRowContext(ctx).
		Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load document")
	}
	return decodeFields(data)
}

func (s *SQLStorage) upsert(ctx context.Context, runner sq.BaseRunner, collection, id string, fields Fields) error {
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}

	query := s.builder.Insert(documentsTable).
		Columns("path", "collection", "id", "data", "updated_at").
		Values(DocPath(collection, id), collection, id, data, time.Now().UTC()).
		Suffix("ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at")

	_, err = query.RunWith(runner).ExecContext(ctx)
	return err
}

func rollback(tx *sql.Tx) {
	err := tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Error("error when transaction rollback", zap.Error(err))
	}
}

func encodeFields(fields Fields) (string, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", errors.Wrap(err, "encode fields")
	}
	return string(raw), nil
}

// decodeFields keeps numbers as json.Number so amounts survive untouched.
func decodeFields(data string) (Fields, error) {
	dec := json.NewDecoder(bytes.NewBufferString(data))
	dec.UseNumber()

	fields := make(Fields)
	if err := dec.Decode(&fields); err != nil {
		return nil, errors.Wrap(err, "decode fields")
	}
	return fields, nil
}
