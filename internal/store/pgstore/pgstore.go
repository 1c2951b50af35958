package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/stage-quiz-backend/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const uniqueViolation = "23505"

type gameRecord struct {
	ID                  string      `gorm:"primaryKey"`
	Name                string      `gorm:"not null"`
	Owner               string      `gorm:"index;not null"`
	Stages              []string    `gorm:"serializer:json"`
	Dict                [][2]string `gorm:"serializer:json"`
	TermLanguage        string
	TranslationLanguage string
	CreatedAt           time.Time
}

func (gameRecord) TableName() string { return "games" }

type userRecord struct {
	Email     string `gorm:"primaryKey"`
	Name      string
	Picture   string
	CreatedAt time.Time
}

func (userRecord) TableName() string { return "users" }

type tokenRecord struct {
	TokenHash string `gorm:"primaryKey"`
	Email     string `gorm:"index;not null"`
	CreatedAt time.Time
}

func (tokenRecord) TableName() string { return "auth_tokens" }

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&gameRecord{}, &userRecord{}, &tokenRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("postgres store ready")
	return &Store{db: db, log: log}, nil
}

func (s *Store) CreateGame(ctx context.Context, game store.Game) error {
	rec := gameRecord{
		ID:                  game.ID,
		Name:                game.Name,
		Owner:               game.Owner,
		Stages:              game.Stages,
		Dict:                game.Dict,
		TermLanguage:        game.TermLanguage,
		TranslationLanguage: game.TranslationLanguage,
		CreatedAt:           game.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) LoadGame(ctx context.Context, id string) (store.Game, error) {
	var rec gameRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return store.Game{}, translate(err)
	}
	return fromGameRecord(rec), nil
}

func (s *Store) GamesByOwner(ctx context.Context, owner string) ([]store.Game, error) {
	var recs []gameRecord
	if err := s.db.WithContext(ctx).Where("owner = ?", owner).Order("created_at").Find(&recs).Error; err != nil {
		return nil, translate(err)
	}
	games := make([]store.Game, len(recs))
	for i, rec := range recs {
		games[i] = fromGameRecord(rec)
	}
	return games, nil
}

func (s *Store) PutUser(ctx context.Context, user store.User) (bool, error) {
	rec := userRecord{Email: user.Email, Name: user.Name, Picture: user.Picture}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) GetUser(ctx context.Context, email string) (store.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).First(&rec, "email = ?", email).Error; err != nil {
		return store.User{}, translate(err)
	}
	return store.User{Email: rec.Email, Name: rec.Name, Picture: rec.Picture}, nil
}

func (s *Store) SaveToken(ctx context.Context, token, email string) error {
	rec := tokenRecord{TokenHash: store.HashToken(token), Email: email}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Store) EmailForToken(ctx context.Context, token string) (string, error) {
	var rec tokenRecord
	if err := s.db.WithContext(ctx).First(&rec, "token_hash = ?", store.HashToken(token)).Error; err != nil {
		return "", translate(err)
	}
	return rec.Email, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func fromGameRecord(rec gameRecord) store.Game {
	return store.Game{
		ID:                  rec.ID,
		Name:                rec.Name,
		Owner:               rec.Owner,
		Stages:              rec.Stages,
		Dict:                rec.Dict,
		TermLanguage:        rec.TermLanguage,
		TranslationLanguage: rec.TranslationLanguage,
		CreatedAt:           rec.CreatedAt,
	}
}
