package broadband

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raywall/broadband-plan-service/dyndb"
	"github.com/raywall/broadband-plan-service/pkg/cache"
	"github.com/raywall/broadband-plan-service/pkg/metrics"
	"github.com/raywall/broadband-plan-service/pkg/models"
	"github.com/rs/zerolog/log"
)

// CreateConnection grava a conexão ativa do número informado. A chave
// (Active, número) só pode existir uma vez; o segundo pedido recebe
// ErrDuplicateSubject.
func (s *Service) CreateConnection(ctx context.Context, conn models.Connection, subject string) (*models.Connection, error) {
	defer metrics.Since(s.metrics, metrics.OperationLatency, time.Now(), metrics.Tag("op", "create_connection"))
	logger := log.Ctx(ctx).With().Str("mobile_number", subject).Logger()

	conn.ConnectionID = s.newID()
	conn.MobileNumber = subject
	conn.ConnectionStatus = models.StatusActive

	if err := s.connections.PutIfAbsent(ctx, conn); err != nil {
		if errors.Is(err, dyndb.ErrConditionFailed) {
			logger.Warn().Msg("Connection already exists")
			return nil, fmt.Errorf("connection for %s: %w", subject, ErrDuplicateSubject)
		}
		return nil, s.storeFault(ctx, "create connection", err)
	}

	created, err := s.connections.Get(ctx, models.StatusActive, subject)
	if err != nil {
		return nil, s.storeFault(ctx, "create connection", err)
	}

	if err := s.writeConnection(ctx, subject, models.StatusActive, *created); err != nil {
		return nil, err
	}
	logger.Info().Str("connection_id", created.ConnectionID).Msg("conexão criada")
	return created, nil
}

// GetConnection lê a conexão do número no status informado, passando pelo
// cache antes do store.
func (s *Service) GetConnection(ctx context.Context, subject, status string) (*models.Connection, error) {
	defer metrics.Since(s.metrics, metrics.OperationLatency, time.Now(), metrics.Tag("op", "get_connection"))
	logger := log.Ctx(ctx).With().Str("mobile_number", subject).Str("status", status).Logger()

	cached, hit, err := s.cache.ReadConnection(ctx, subject, status)
	if err != nil {
		metrics.Incr(s.metrics, metrics.CacheError, metrics.Tag("op", "get_connection"))
		logger.Error().Err(err).Msg("falha ao ler conexão do cache")
		return nil, cacheError("get connection", err)
	}
	if hit {
		metrics.Incr(s.metrics, metrics.CacheHit, metrics.Tag("op", "get_connection"))
		return cached, nil
	}
	metrics.Incr(s.metrics, metrics.CacheMiss, metrics.Tag("op", "get_connection"))

	conn, err := s.connections.Get(ctx, status, subject)
	if errors.Is(err, dyndb.ErrNotFound) {
		logger.Warn().Msg("No Connection found")
		return nil, fmt.Errorf("no connection found with mobile number: %s: %w", subject, ErrNotFound)
	}
	if err != nil {
		return nil, s.storeFault(ctx, "get connection", err)
	}

	if err := s.writeConnection(ctx, subject, status, *conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// writeConnection popula o cache. Falha de rede só é registrada; falha de
// serialização volta como erro, igual à listagem de planos.
func (s *Service) writeConnection(ctx context.Context, subject, status string, conn models.Connection) error {
	if err := s.cache.WriteConnection(ctx, subject, status, conn); err != nil {
		if errors.Is(err, cache.ErrSerialization) {
			return cacheError("write connection", err)
		}
		metrics.Incr(s.metrics, metrics.CacheError, metrics.Tag("op", "write_connection"))
		log.Ctx(ctx).Warn().Err(err).Str("mobile_number", subject).Msg("falha ao gravar conexão no cache")
	}
	return nil
}
