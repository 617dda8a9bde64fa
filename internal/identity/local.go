package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const minPasswordLen = 8

// LocalProvider keeps accounts in the local SQLite database. It holds no sign-in state; the client
// session store is the only record of who is signed in.
type LocalProvider struct {
	db   *sql.DB
	cost int
}

type LocalOption func(*LocalProvider)

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost).
func WithBcryptCost(cost int) LocalOption {
	return func(p *LocalProvider) {
		p.cost = cost
	}
}

func NewLocalProvider(ctx context.Context, db *sql.DB, opts ...LocalOption) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("identity: db must not be nil")
	}
	p := &LocalProvider{db: db, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.initSchema(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LocalProvider) initSchema(ctx context.Context) error {
	const query = `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("identity: create schema: %w", err)
	}
	return nil
}

var newUserID = func() string {
	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// SignUp registers a new account.
func (p *LocalProvider) SignUp(ctx context.Context, creds Credentials) (User, error) {
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return User{}, err
	}
	if len(creds.Password) < minPasswordLen {
		return User{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), p.cost)
	if err != nil {
		return User{}, fmt.Errorf("identity: hash password: %w", err)
	}

	// UNIQUE(email) decides races between concurrent sign-ups.
	id := newUserID()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		id, email, string(hash), time.Now().Unix())
	if isUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("identity: SignUp insert: %w", err)
	}

	return User{ID: id, PrimaryEmailAddress: &EmailAddress{EmailAddress: email}}, nil
}

// SignIn verifies credentials against the stored bcrypt hash.
func (p *LocalProvider) SignIn(ctx context.Context, creds Credentials) (User, error) {
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}

	var id, hash string
	err = p.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM accounts WHERE email = ?`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("identity: SignIn lookup: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return User{ID: id, PrimaryEmailAddress: &EmailAddress{EmailAddress: email}}, nil
}

// SignOut is a no-op: local accounts have no provider-side session to end.
func (p *LocalProvider) SignOut(_ context.Context) error {
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
