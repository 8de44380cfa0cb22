package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// anonymousEmail identifies the fallback user for unauthenticated imports.
const anonymousEmail = "anonymous@system.local"

var ErrEmailTaken = errors.New("email already registered")

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, email, passwordHash, name string) (*User, error) {
	const q = `
insert into users (email, password_hash, name)
values ($1, $2, nullif($3,''))
on conflict (email) do nothing
returning id, email, coalesce(name,''), created_at;
`
	var u User
	err := r.db.QueryRow(ctx, q, email, passwordHash, name).
		Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

// GetByEmail returns the user and its password hash for login checks.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, string, error) {
	const q = `
select id, email, coalesce(name,''), password_hash, created_at
from users where email = $1;
`
	var (
		u    User
		hash string
	)
	err := r.db.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.Name, &hash, &u.CreatedAt)
	if err != nil {
		return nil, "", err
	}
	return &u, hash, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	const q = `
select id, email, coalesce(name,''), created_at
from users where id = $1;
`
	var u User
	err := r.db.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureAnonymous creates the anonymous user if absent and returns its id.
// Unauthenticated object-store imports are attributed to it.
func (r *Repo) EnsureAnonymous(ctx context.Context) (int64, error) {
	const insertQ = `
insert into users (email, password_hash, name)
values ($1, '!', 'Anonymous')
on conflict (email) do nothing;
`
	if _, err := r.db.Exec(ctx, insertQ, anonymousEmail); err != nil {
		return 0, fmt.Errorf("ensure anonymous user: %w", err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, `select id from users where email = $1;`, anonymousEmail).Scan(&id); err != nil {
		return 0, fmt.Errorf("load anonymous user: %w", err)
	}
	return id, nil
}
