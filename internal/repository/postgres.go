package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bagumbayan/brgydocs/internal/models"
)

// DBTX is implemented by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

type PostgresUsers struct {
	db DBTX
}

func NewPostgresUsers(db DBTX) *PostgresUsers {
	return &PostgresUsers{db: db}
}

func (r *PostgresUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT username, password_hash, role, created_at
		FROM users
		WHERE username = $1`

	u := &models.User{}
	err := r.db.QueryRow(ctx, query, username).Scan(&u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func (r *PostgresUsers) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, user.Username, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PostgresUsers) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

type PostgresArchive struct {
	db DBTX
}

func NewPostgresArchive(db DBTX) *PostgresArchive {
	return &PostgresArchive{db: db}
}

func (r *PostgresArchive) Put(ctx context.Context, doc *models.GeneratedDocument, content []byte) error {
	query := `
		INSERT INTO certificates (id, format, document_type, file_name, content_type, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id, format) DO UPDATE
		SET content = EXCLUDED.content, content_type = EXCLUDED.content_type`

	_, err := r.db.Exec(ctx, query,
		doc.ID, string(doc.Format), string(doc.Type), doc.FileName, doc.ContentType, content, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive certificate: %w", err)
	}
	return nil
}

func (r *PostgresArchive) Get(ctx context.Context, id string, f models.Format) (*models.GeneratedDocument, []byte, error) {
	query := `
		SELECT document_type, file_name, content_type, content, created_at
		FROM certificates
		WHERE id = $1 AND format = $2`

	doc := &models.GeneratedDocument{ID: id, Format: f}
	var (
		docType string
		content []byte
	)
	err := r.db.QueryRow(ctx, query, id, string(f)).Scan(&docType, &doc.FileName, &doc.ContentType, &content, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("select certificate: %w", err)
	}
	doc.Type = models.DocumentType(docType)
	doc.Size = int64(len(content))
	return doc, content, nil
}

func (r *PostgresArchive) List(ctx context.Context, limit int) ([]models.GeneratedDocument, error) {
	query := `
		SELECT id, format, document_type, file_name, content_type, octet_length(content), created_at
		FROM certificates
		ORDER BY created_at DESC
		LIMIT $1`

	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var docs []models.GeneratedDocument
	for rows.Next() {
		var (
			d               models.GeneratedDocument
			format, docType string
		)
		if err := rows.Scan(&d.ID, &format, &docType, &d.FileName, &d.ContentType, &d.Size, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		d.Format = models.Format(format)
		d.Type = models.DocumentType(docType)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresArchive) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM certificates WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune certificates: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
