package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bagumbayan/brgydocs/internal/db"
	"github.com/bagumbayan/brgydocs/internal/models"
	"github.com/bagumbayan/brgydocs/internal/oxidb"
)

const UsersCollection = "brgy_users"

type OxiUsers struct {
	pool *db.Pool
}

func NewOxiUsers(pool *db.Pool) *OxiUsers {
	return &OxiUsers{pool: pool}
}

// EnsureIndexes makes usernames unique on the server side.
func (r *OxiUsers) EnsureIndexes(ctx context.Context) error {
	c := r.pool.Get()
	if err := c.CreateCollection(ctx, UsersCollection); err != nil && !oxidb.IsExists(err) {
		return err
	}
	if err := c.CreateUniqueIndex(ctx, UsersCollection, "username"); err != nil && !oxidb.IsExists(err) {
		return err
	}
	return nil
}

func (r *OxiUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	c := r.pool.Get()
	doc, err := c.FindOne(ctx, UsersCollection, map[string]any{"username": username})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return docToUser(doc)
}

func (r *OxiUsers) Create(ctx context.Context, user *models.User) error {
	c := r.pool.Get()
	doc := map[string]any{
		"username":     user.Username,
		"passwordHash": user.PasswordHash,
		"role":         user.Role,
		"createdAt":    user.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if _, err := c.Insert(ctx, UsersCollection, doc); err != nil {
		if oxidb.IsDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *OxiUsers) Exists(ctx context.Context, username string) (bool, error) {
	c := r.pool.Get()
	n, err := c.Count(ctx, UsersCollection, map[string]any{"username": username})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func docToUser(doc map[string]any) (*models.User, error) {
	delete(doc, "_id")
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal user doc: %w", err)
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}
