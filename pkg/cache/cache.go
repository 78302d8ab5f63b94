// Copyright 2025 Raywall Malheiros de Souza
// Licensed under the Mozilla Public License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.mozilla.org/en-US/MPL/2.0/
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cache implementa o cache-aside de listagens de planos e de conexões
// sobre Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/raywall/broadband-plan-service/pkg/models"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultPlanNamespace       = "BroadbandPlans"
	DefaultConnectionNamespace = "ConnectionDetail"

	keySeparator  = "::"
	scanBatchSize = 100
)

var (
	// ErrSerialization indica falha ao codificar/decodificar uma entrada.
	ErrSerialization = errors.New("cache: serialization failure")

	// ErrUnavailable cobre falhas de comunicação com o Redis.
	ErrUnavailable = errors.New("cache: redis unavailable")
)

// Options configura namespaces e expiração das entradas.
type Options struct {
	// TTL zero grava sem expiração; a invalidação é explícita.
	TTL                 time.Duration
	PlanNamespace       string
	ConnectionNamespace string
}

// Cache não guarda estado entre requisições além do client.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	planNS string
	connNS string
}

// New cria o cache aplicando os namespaces padrão quando vazios.
func New(client redis.UniversalClient, opts Options) *Cache {
	c := &Cache{
		client: client,
		ttl:    opts.TTL,
		planNS: opts.PlanNamespace,
		connNS: opts.ConnectionNamespace,
	}
	if c.planNS == "" {
		c.planNS = DefaultPlanNamespace
	}
	if c.connNS == "" {
		c.connNS = DefaultConnectionNamespace
	}
	return c
}

// ReadPlans devolve (nil, false, nil) em cache miss.
func (c *Cache) ReadPlans(ctx context.Context, key string) ([]models.Plan, bool, error) {
	var plans []models.Plan
	hit, err := c.read(ctx, c.planKey(key), &plans)
	if err != nil || !hit {
		return nil, false, err
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	return plans, true, nil
}

// WritePlans grava a listagem já fatiada por offset/limit.
func (c *Cache) WritePlans(ctx context.Context, key string, plans []models.Plan) error {
	if plans == nil {
		plans = []models.Plan{}
	}
	return c.write(ctx, c.planKey(key), plans)
}

// InvalidatePlans remove todas as listagens do namespace de planos e devolve
// quantas chaves foram apagadas.
func (c *Cache) InvalidatePlans(ctx context.Context) (int, error) {
	iter := c.client.Scan(ctx, 0, c.planNS+keySeparator+"*", scanBatchSize).Iterator()

	removed := 0
	batch := make([]string, 0, scanBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("%w: del: %w", ErrUnavailable, err)
		}
		removed += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatchSize {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: scan: %w", ErrUnavailable, err)
	}
	if err := flush(); err != nil {
		return removed, err
	}
	return removed, nil
}

// ReadConnection devolve (nil, false, nil) em cache miss.
func (c *Cache) ReadConnection(ctx context.Context, subject, status string) (*models.Connection, bool, error) {
	var conn models.Connection
	hit, err := c.read(ctx, c.connectionKey(subject, status), &conn)
	if err != nil || !hit {
		return nil, false, err
	}
	return &conn, true, nil
}

func (c *Cache) WriteConnection(ctx context.Context, subject, status string, conn models.Connection) error {
	return c.write(ctx, c.connectionKey(subject, status), conn)
}

func (c *Cache) planKey(key string) string {
	return c.planNS + keySeparator + key
}

func (c *Cache) connectionKey(subject, status string) string {
	return c.connNS + keySeparator + escape(subject) + fieldSeparator + escape(status) + "_connection_details"
}

func (c *Cache) read(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: get %s: %w", ErrUnavailable, key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w: decode %s: %w", ErrSerialization, key, err)
	}
	return true, nil
}

func (c *Cache) write(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrSerialization, key, err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrUnavailable, key, err)
	}
	return nil
}
