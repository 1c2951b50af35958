//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks
package store

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/blake2b"
)

var ErrNotFound = errors.New("record not found")
var ErrConflict = errors.New("record already exists")

// Game is a stored word-pair game definition. It is never mutated once created.
type Game struct {
	ID                  string
	Name                string
	Owner               string
	Stages              []string
	Dict                [][2]string
	TermLanguage        string
	TranslationLanguage string
	CreatedAt           time.Time
}

type User struct {
	Email   string
	Name    string
	Picture string
}

// Store persists users, session tokens and games. Sessions and rooms are
// never persisted.
type Store interface {
	CreateGame(ctx context.Context, game Game) error
	LoadGame(ctx context.Context, id string) (Game, error)
	GamesByOwner(ctx context.Context, owner string) ([]Game, error)
	// PutUser inserts the user unless the email is already known.
	PutUser(ctx context.Context, user User) (created bool, err error)
	GetUser(ctx context.Context, email string) (User, error)
	SaveToken(ctx context.Context, token, email string) error
	EmailForToken(ctx context.Context, token string) (string, error)
	Close() error
}

// HashToken is the key session tokens are stored under; raw tokens never
// reach the database.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
