// Package broadband orquestra store e cache para planos e conexões.
package broadband

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raywall/broadband-plan-service/dyndb"
	"github.com/raywall/broadband-plan-service/pkg/cache"
	"github.com/raywall/broadband-plan-service/pkg/mapper"
	"github.com/raywall/broadband-plan-service/pkg/metrics"
	"github.com/raywall/broadband-plan-service/pkg/models"
	"github.com/raywall/broadband-plan-service/pkg/query"
	"github.com/rs/zerolog/log"
)

// Cache é o subconjunto de *cache.Cache usado pelo serviço.
type Cache interface {
	ReadPlans(ctx context.Context, key string) ([]models.Plan, bool, error)
	WritePlans(ctx context.Context, key string, plans []models.Plan) error
	InvalidatePlans(ctx context.Context) (int, error)
	ReadConnection(ctx context.Context, subject, status string) (*models.Connection, bool, error)
	WriteConnection(ctx context.Context, subject, status string, conn models.Connection) error
}

var _ Cache = (*cache.Cache)(nil)

type Options struct {
	// ExtendedFilters aplica category e data na Query de partição.
	ExtendedFilters bool
	Metrics         metrics.Provider
	// NewID gera PlanID e ConnectionID; padrão uuid v4.
	NewID func() string
}

// Service não guarda estado próprio: store e cache são injetados e podem ser
// compartilhados entre instâncias.
type Service struct {
	plans       dyndb.Store[models.Plan]
	connections dyndb.Store[models.Connection]
	cache       Cache
	translator  query.Translator
	metrics     metrics.Provider
	newID       func() string
}

func NewService(plans dyndb.Store[models.Plan], connections dyndb.Store[models.Connection], c Cache, opts Options) *Service {
	s := &Service{
		plans:       plans,
		connections: connections,
		cache:       c,
		translator:  query.Translator{ExtendedFilters: opts.ExtendedFilters},
		metrics:     opts.Metrics,
		newID:       opts.NewID,
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop{}
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// AddPlan grava o plano com um PlanID novo e devolve o registro relido.
func (s *Service) AddPlan(ctx context.Context, plan models.Plan) (*models.Plan, error) {
	defer metrics.Since(s.metrics, metrics.OperationLatency, time.Now(), metrics.Tag("op", "add_plan"))

	plan.PlanID = s.newID()
	if plan.PlanType == "" {
		plan.PlanType = models.DefaultPlanType
	}
	logger := log.Ctx(ctx).With().Str("plan_id", plan.PlanID).Str("plan_type", plan.PlanType).Logger()

	if err := s.invalidateBefore(ctx); err != nil {
		return nil, err
	}

	if err := s.plans.PutIfAbsent(ctx, plan); err != nil {
		if errors.Is(err, dyndb.ErrConditionFailed) {
			logger.Warn().Msg("PlanID já existe")
			return nil, fmt.Errorf("add plan %s: %w", plan.PlanID, ErrDuplicatePlan)
		}
		return nil, s.storeFault(ctx, "add plan", err)
	}

	created, err := s.plans.Get(ctx, plan.PlanType, plan.PlanID)
	if err != nil {
		return nil, s.storeFault(ctx, "add plan", err)
	}

	s.invalidateAfter(ctx, "add_plan")
	logger.Info().Msg("plano criado")
	return created, nil
}

// UpdatePlan substitui todos os atributos do plano (planType, planID). A
// releitura após o update é a fonte de verdade. Plano removido (Active=False)
// não volta: o update responde ErrNotFound.
func (s *Service) UpdatePlan(ctx context.Context, plan models.Plan, planID string) (*models.Plan, error) {
	defer metrics.Since(s.metrics, metrics.OperationLatency, time.Now(), metrics.Tag("op", "update_plan"))

	planType := plan.PlanType
	if planType == "" {
		planType = models.DefaultPlanType
	}
	logger := log.Ctx(ctx).With().Str("plan_id", planID).Str("plan_type", planType).Logger()

	current, err := s.plans.Get(ctx, planType, planID)
	if errors.Is(err, dyndb.ErrNotFound) {
		logger.Warn().Msg("plano não encontrado para update")
		return nil, fmt.Errorf("no plan found with id: %s: %w", planID, ErrNotFound)
	}
	if err != nil {
		return nil, s.storeFault(ctx, "update plan", err)
	}
	if !current.IsActive() {
		logger.Warn().Msg("update em plano removido")
		return nil, fmt.Errorf("no plan found with id: %s: %w", planID, ErrNotFound)
	}
	if plan.Active == "" {
		plan.Active = current.Active
	}

	if err := s.invalidateBefore(ctx); err != nil {
		return nil, err
	}

	if err := s.plans.Update(ctx, planType, planID, mapper.PlanChanges(plan)); err != nil {
		if errors.Is(err, dyndb.ErrConditionFailed) {
			logger.Warn().Msg("plano não encontrado para update")
			return nil, fmt.Errorf("no plan found with id: %s: %w", planID, ErrNotFound)
		}
		return nil, s.storeFault(ctx, "update plan", err)
	}

	updated, err := s.plans.Get(ctx, planType, planID)
	if errors.Is(err, dyndb.ErrNotFound) {
		logger.Warn().Msg("plano sumiu após o update")
		return nil, fmt.Errorf("no plan found with id: %s: %w", planID, ErrNotFound)
	}
	if err != nil {
		return nil, s.storeFault(ctx, "update plan", err)
	}

	s.invalidateAfter(ctx, "update_plan")
	logger.Info().Msg("plano atualizado")
	return updated, nil
}

// DeletePlan marca o plano como inativo. Retorna false quando ele já estava
// inativo, sem gravar nada.
func (s *Service) DeletePlan(ctx context.Context, planID string) (bool, error) {
	defer metrics.Since(s.metrics, metrics.OperationLatency, time.Now(), metrics.Tag("op", "delete_plan"))
	logger := log.Ctx(ctx).With().Str("plan_id", planID).Logger()

	current, err := s.plans.Get(ctx, models.DefaultPlanType, planID)
	if errors.Is(err, dyndb.ErrNotFound) {
		logger.Warn().Msg("plano não encontrado para remoção")
		return false, fmt.Errorf("no plan found with id: %s: %w", planID, ErrNotFound)
	}
	if err != nil {
		return false, s.storeFault(ctx, "delete plan", err)
	}
	if !current.IsActive() {
		return false, nil
	}

	if err := s.invalidateBefore(ctx); err != nil {
		return false, err
	}

	changes := map[string]any{mapper.AttrActive: models.ActiveFalse}
	if err := s.plans.Update(ctx, models.DefaultPlanType, planID, changes); err != nil {
		if errors.Is(err, dyndb.ErrConditionFailed) {
			return false, fmt.Errorf("no plan found with id: %s: %w", planID, ErrNotFound)
		}
		return false, s.storeFault(ctx, "delete plan", err)
	}

	s.invalidateAfter(ctx, "delete_plan")
	logger.Info().Msg("plano desativado")
	return true, nil
}

// ListPlans consulta o cache e, em miss, o store. O offset/limit é aplicado
// sobre o resultado completo da Query e a fatia resultante vai para o cache.
func (s *Service) ListPlans(ctx context.Context, r models.FilterRequest) ([]models.Plan, error) {
	defer metrics.Since(s.metrics, metrics.OperationLatency, time.Now(), metrics.Tag("op", "list_plans"))

	key := cache.KeyFor(r)
	logger := log.Ctx(ctx).With().Str("cache_key", key).Logger()

	cached, hit, err := s.cache.ReadPlans(ctx, key)
	if err != nil {
		metrics.Incr(s.metrics, metrics.CacheError, metrics.Tag("op", "list_plans"))
		logger.Error().Err(err).Msg("falha ao ler listagem do cache")
		return nil, cacheError("list plans", err)
	}
	if hit {
		metrics.Incr(s.metrics, metrics.CacheHit, metrics.Tag("op", "list_plans"))
		return cached, nil
	}
	metrics.Incr(s.metrics, metrics.CacheMiss, metrics.Tag("op", "list_plans"))

	q := s.translator.Translate(r)
	found, err := s.plans.Find(ctx, q.Spec)
	if err != nil {
		return nil, s.storeFault(ctx, "list plans", err)
	}

	page := paginate(found, r.Offset, r.Limit)
	logger.Debug().Str("query", q.Kind.String()).Int("found", len(found)).Int("page", len(page)).Msg("planos lidos do store")

	if err := s.cache.WritePlans(ctx, key, page); err != nil {
		if errors.Is(err, cache.ErrSerialization) {
			return nil, cacheError("list plans", err)
		}
		metrics.Incr(s.metrics, metrics.CacheError, metrics.Tag("op", "list_plans"))
		logger.Warn().Err(err).Msg("falha ao gravar listagem no cache")
	}
	return page, nil
}

// GetPlanDetails busca vários planos de um tipo por id, indexados por PlanID.
// Ids inexistentes ficam de fora do mapa.
func (s *Service) GetPlanDetails(ctx context.Context, planType string, ids []string) (map[string]models.Plan, error) {
	defer metrics.Since(s.metrics, metrics.OperationLatency, time.Now(), metrics.Tag("op", "plan_details"))

	if planType == "" {
		planType = models.DefaultPlanType
	}

	seen := make(map[string]struct{}, len(ids))
	keys := make([][2]any, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, [2]any{planType, id})
	}

	result := make(map[string]models.Plan, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	plans, err := s.plans.BatchGet(ctx, keys)
	if err != nil {
		return nil, s.storeFault(ctx, "plan details", err)
	}
	for _, p := range plans {
		result[p.PlanID] = p
	}
	return result, nil
}

func paginate(plans []models.Plan, offset, limit int) []models.Plan {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	page := []models.Plan{}
	if offset >= len(plans) {
		return page
	}
	end := offset + limit
	if end > len(plans) || end < offset {
		end = len(plans)
	}
	return append(page, plans[offset:end]...)
}

// invalidateBefore limpa as listagens antes da escrita; se falhar nada foi
// alterado e a operação é abortada.
func (s *Service) invalidateBefore(ctx context.Context) error {
	n, err := s.cache.InvalidatePlans(ctx)
	if err != nil {
		metrics.Incr(s.metrics, metrics.InvalidationFailed, metrics.Tag("phase", "before"))
		log.Ctx(ctx).Error().Err(err).Msg("falha ao invalidar listagens antes da escrita")
		return cacheError("invalidate plans", err)
	}
	_ = s.metrics.Count(metrics.CacheInvalidated, float64(n), nil)
	return nil
}

// invalidateAfter remove listagens gravadas durante a escrita. A escrita já
// foi confirmada, então uma falha aqui só é registrada.
func (s *Service) invalidateAfter(ctx context.Context, op string) {
	n, err := s.cache.InvalidatePlans(ctx)
	if err != nil {
		metrics.Incr(s.metrics, metrics.InvalidationFailed, metrics.Tag("phase", "after"), metrics.Tag("op", op))
		log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("falha ao invalidar listagens após a escrita")
		return
	}
	_ = s.metrics.Count(metrics.CacheInvalidated, float64(n), nil)
}

func (s *Service) storeFault(ctx context.Context, op string, err error) error {
	mapped := storeError(op, err)
	if errors.Is(mapped, ErrStoreUnavailable) || errors.Is(mapped, ErrSerialization) {
		metrics.Incr(s.metrics, metrics.StoreError, metrics.Tag("op", op))
		log.Ctx(ctx).Error().Err(err).Str("op", op).Msg("Error Connecting to Database")
	}
	return mapped
}
