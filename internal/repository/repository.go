// Package repository stores user accounts, browser sessions and archived
// certificates. Each concern has an interface with in-memory, OxiDB and
// PostgreSQL implementations chosen at startup.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bagumbayan/brgydocs/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// UserRepository is the key lookup for accounts, keyed by username.
type UserRepository interface {
	// FindByUsername returns ErrNotFound when no such account exists.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// Create returns ErrDuplicate when the username is taken.
	Create(ctx context.Context, user *models.User) error
	Exists(ctx context.Context, username string) (bool, error)
}

// ArchiveRepository keeps a copy of every issued certificate so a download
// still works after the request directory has been swept.
type ArchiveRepository interface {
	Put(ctx context.Context, doc *models.GeneratedDocument, content []byte) error
	// Get returns ErrNotFound when nothing is archived under id and format.
	Get(ctx context.Context, id string, format models.Format) (*models.GeneratedDocument, []byte, error)
	// List returns up to limit archived artifacts, newest first, without content.
	List(ctx context.Context, limit int) ([]models.GeneratedDocument, error)
	// Prune deletes every artifact created before cutoff and reports how many went.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// NopArchive archives nothing; used with the in-memory store.
type NopArchive struct{}

func (NopArchive) Put(context.Context, *models.GeneratedDocument, []byte) error { return nil }

func (NopArchive) Get(context.Context, string, models.Format) (*models.GeneratedDocument, []byte, error) {
	return nil, nil, ErrNotFound
}

func (NopArchive) List(context.Context, int) ([]models.GeneratedDocument, error) { return nil, nil }

func (NopArchive) Prune(context.Context, time.Time) (int, error) { return 0, nil }
