package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fuad-rahat/school-website/internal/models"
	"github.com/fuad-rahat/school-website/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE of a unique constraint violation.
const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS admins (
		admin_id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'admin',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		doc_id UUID NOT NULL,
		body JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, doc_id)
	)`,
	`CREATE INDEX IF NOT EXISTS documents_body_idx ON documents USING GIN (body jsonb_path_ops)`,
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

// Migrate creates the tables used by the store if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) AdminByUsername(ctx context.Context, username string) (models.Admin, error) {
	var admin models.Admin
	row := s.pool.QueryRow(ctx, `
		SELECT admin_id, username, password_hash, role, created_at
		FROM admins
		WHERE username = $1
	`, username)
	if err := row.Scan(&admin.AdminID, &admin.Username, &admin.PasswordHash, &admin.Role, &admin.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Admin{}, store.ErrNotFound
		}
		return models.Admin{}, err
	}
	return admin, nil
}

func (s *Store) CreateAdmin(ctx context.Context, admin models.Admin) (models.Admin, error) {
	if admin.AdminID == "" {
		admin.AdminID = uuid.NewString()
	}
	if admin.Role == "" {
		admin.Role = models.RoleAdmin
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO admins (admin_id, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, admin.AdminID, admin.Username, admin.PasswordHash, admin.Role)
	if err := row.Scan(&admin.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.Admin{}, store.ErrAlreadyExists
		}
		return models.Admin{}, err
	}
	return admin, nil
}

func (s *Store) Find(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	var sql strings.Builder
	sql.WriteString(`SELECT doc_id, body, created_at, updated_at FROM documents WHERE collection = $1`)
	args := []any{collection}

	if len(q.Filter) > 0 {
		filter, err := json.Marshal(q.Filter)
		if err != nil {
			return nil, fmt.Errorf("encoding filter: %w", err)
		}
		args = append(args, string(filter))
		fmt.Fprintf(&sql, ` AND body @> $%d::jsonb`, len(args))
	}

	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	if q.SortField != "" {
		args = append(args, q.SortField)
		fmt.Fprintf(&sql, ` ORDER BY body->>($%d::text) %s, created_at %s`, len(args), dir, dir)
	} else {
		sql.WriteString(` ORDER BY created_at DESC`)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sql, ` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sql.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		if err := rows.Scan(&doc.ID, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) FindOne(ctx context.Context, collection, id string) (store.Document, error) {
	doc := store.Document{ID: id}
	row := s.pool.QueryRow(ctx, `
		SELECT body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND doc_id = $2
	`, collection, id)
	if err := row.Scan(&doc.Body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, err
	}
	return doc, nil
}

func (s *Store) Insert(ctx context.Context, collection string, body []byte) (store.Document, error) {
	doc := store.Document{ID: uuid.NewString(), Body: body}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (collection, doc_id, body)
		VALUES ($1, $2, $3::jsonb)
		RETURNING created_at, updated_at
	`, collection, doc.ID, string(body))
	if err := row.Scan(&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return store.Document{}, err
	}
	return doc, nil
}

func (s *Store) Replace(ctx context.Context, collection, id string, body []byte) (store.Document, error) {
	doc := store.Document{ID: id, Body: body}
	row := s.pool.QueryRow(ctx, `
		UPDATE documents
		SET body = $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND doc_id = $2
		RETURNING created_at, updated_at
	`, collection, id, string(body))
	if err := row.Scan(&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Document{}, store.ErrNotFound
		}
		return store.Document{}, err
	}
	return doc, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM documents
		WHERE collection = $1 AND doc_id = $2
	`, collection, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Distinct(ctx context.Context, collection, field string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT body->>($2::text) AS value
		FROM documents
		WHERE collection = $1 AND body->>($2::text) IS NOT NULL
		ORDER BY value DESC
	`, collection, field)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	row := s.pool.QueryRow(ctx, `SELECT count(*) FROM documents WHERE collection = $1`, collection)
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
