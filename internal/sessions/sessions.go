// Package sessions stores opaque browser sessions in Redis. A session
// maps a random id to the principal it was issued for and disappears
// when its TTL runs out.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lavaderos/turnos-backend/internal/config"
	"github.com/lavaderos/turnos-backend/internal/models"
)

// Data is what a session remembers about its principal.
type Data struct {
	PrincipalID string    `json:"principal_id"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	IssuedAt    time.Time `json:"issued_at"`
}

// Store issues and resolves sessions against Redis.
type Store struct {
	db  *redis.Client
	ttl time.Duration
}

// InitServer connects to Redis and verifies it with a ping.
func InitServer(ctx context.Context, cfg config.RedisConnection, ttl time.Duration) (*Store, error) {
	const op = "sessions.InitServer"

	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Store{db: db, ttl: ttl}, nil
}

func sessionKey(id string) string {
	return "session:" + id
}

// Create issues a new session for the principal and returns its id.
func (s *Store) Create(ctx context.Context, p *models.Principal) (string, error) {
	const op = "sessions.Create"

	data := Data{
		PrincipalID: p.ID,
		Email:       p.Email,
		Role:        p.Role,
		IssuedAt:    time.Now().UTC(),
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id := uuid.NewString()
	if err = s.db.Set(ctx, sessionKey(id), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// Resolve returns the session data for an id, or ErrUnauthenticated
// when the session does not exist or has expired.
func (s *Store) Resolve(ctx context.Context, id string) (*Data, error) {
	const op = "sessions.Resolve"

	val, err := s.db.Get(ctx, sessionKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var data Data
	if err = json.Unmarshal([]byte(val), &data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &data, nil
}

// Delete drops a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	const op = "sessions.Delete"

	if err := s.db.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
