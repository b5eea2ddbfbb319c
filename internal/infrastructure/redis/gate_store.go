// Package redis guarda en Redis las marcas con expiración del gate de contraseñas.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/mandoubi-api/internal/application/gate"
	"github.com/jhoicas/mandoubi-api/pkg/config"
)

var _ gate.Store = (*GateStore)(nil)

const keyPrefix = "gate:"

// NewClient crea el cliente y verifica la conexión con un PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// GateStore implementa gate.Store: la marca es una clave con TTL igual a la ventana de la acción.
type GateStore struct {
	client goredis.Cmdable
	now    func() time.Time
}

// NewGateStore construye el store.
func NewGateStore(client goredis.Cmdable) *GateStore {
	return &GateStore{client: client, now: time.Now}
}

// Valid informa si la marca existe (Redis la expira sola al vencer el TTL).
func (s *GateStore) Valid(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Touch guarda la hora de la última contraseña correcta con el TTL dado.
func (s *GateStore) Touch(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+key, s.now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
