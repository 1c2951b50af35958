package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/stage-quiz-backend/internal/store"
	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Key layout:
//
//	game:<id>              -> store.Game
//	owner:<email>\x00<id> -> empty (index for GamesByOwner)
//	user:<email>           -> store.User
//	token:<hash>           -> email
const (
	gamePrefix  = "game:"
	ownerPrefix = "owner:"
	userPrefix  = "user:"
	tokenPrefix = "token:"

	// ownerSep ends the email in an owner key; it cannot occur in an address.
	ownerSep = "\x00"
)

type Store struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens a Badger database at path; an empty path keeps it in memory.
func Open(path string, log *zap.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	log.Info("badger store ready", zap.String("path", path), zap.Bool("in_memory", path == ""))
	return New(db, log), nil
}

func New(db *badger.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

func (s *Store) CreateGame(_ context.Context, game store.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(gamePrefix + game.ID)
		if _, err := txn.Get(key); err == nil {
			return store.ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(ownerKey(game.Owner, game.ID), nil)
	})
}

func (s *Store) LoadGame(_ context.Context, id string) (store.Game, error) {
	var game store.Game
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(gamePrefix+id), &game)
	})
	return game, err
}

// GamesByOwner returns the owner's games ordered by id.
func (s *Store) GamesByOwner(_ context.Context, owner string) ([]store.Game, error) {
	var games []store.Game
	prefix := []byte(ownerPrefix + owner + ownerSep)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			var game store.Game
			if err := getJSON(txn, []byte(gamePrefix+id), &game); err != nil {
				return fmt.Errorf("game %s: %w", id, err)
			}
			games = append(games, game)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (s *Store) PutUser(_ context.Context, user store.User) (bool, error) {
	data, err := json.Marshal(user)
	if err != nil {
		return false, fmt.Errorf("marshal user: %w", err)
	}

	created := false
	err = s.db.Update(func(txn *badger.Txn) error {
		key := []byte(userPrefix + user.Email)
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		created = true
		return txn.Set(key, data)
	})
	return created, err
}

func (s *Store) GetUser(_ context.Context, email string) (store.User, error) {
	var user store.User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(userPrefix+email), &user)
	})
	return user, err
}

func (s *Store) SaveToken(_ context.Context, token, email string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(tokenPrefix+store.HashToken(token)), []byte(email))
	})
}

func (s *Store) EmailForToken(_ context.Context, token string) (string, error) {
	var email string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenPrefix + store.HashToken(token)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			email = string(v)
			return nil
		})
	})
	return email, err
}

func (s *Store) Close() error { return s.db.Close() }

func ownerKey(owner, id string) []byte {
	return []byte(ownerPrefix + owner + ownerSep + id)
}

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(v []byte) error {
		return json.Unmarshal(v, out)
	})
}
