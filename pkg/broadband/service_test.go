package broadband_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/raywall/broadband-plan-service/dyndb"
	"github.com/raywall/broadband-plan-service/pkg/broadband"
	"github.com/raywall/broadband-plan-service/pkg/cache"
	"github.com/raywall/broadband-plan-service/pkg/mapper"
	"github.com/raywall/broadband-plan-service/pkg/metrics"
	"github.com/raywall/broadband-plan-service/pkg/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *broadband.Service
	plans   *dyndb.MemoryStore[models.Plan]
	conns   *dyndb.MemoryStore[models.Connection]
	cache   *cache.Cache
	mr      *miniredis.Miniredis
	metrics *metrics.Recorder
}

func sequentialIDs() func() string {
	var n int32
	return func() string {
		return fmt.Sprintf("id-%03d", atomic.AddInt32(&n, 1))
	}
}

func newFixture(t *testing.T, opts broadband.Options) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		plans:   dyndb.NewMemory(mapper.PlanTable("plans")),
		conns:   dyndb.NewMemory(mapper.ConnectionTable("connections")),
		cache:   cache.New(client, cache.Options{}),
		mr:      mr,
		metrics: &metrics.Recorder{},
	}
	if opts.NewID == nil {
		opts.NewID = sequentialIDs()
	}
	opts.Metrics = f.metrics
	f.svc = broadband.NewService(f.plans, f.conns, f.cache, opts)
	return f
}

func (f *fixture) planKeys() []string {
	var keys []string
	for _, k := range f.mr.Keys() {
		if strings.HasPrefix(k, cache.DefaultPlanNamespace+"::") {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestAddPlan_Scenario(t *testing.T) {
	f := newFixture(t, broadband.Options{NewID: func() string { return "5f0c-plan" }})
	ctx := context.Background()

	created, err := f.svc.AddPlan(ctx, models.Plan{
		PlanID:   "ignored",
		PlanType: "Broadband",
		Price:    "300",
		Data:     "2",
		Validity: "28",
	})
	require.NoError(t, err)

	assert.Equal(t, "5f0c-plan", created.PlanID)
	assert.Equal(t, "Broadband", created.PlanType)
	assert.Equal(t, "300", created.Price)
	assert.Equal(t, "2", created.Data)
	assert.Equal(t, "28", created.Validity)
	assert.Equal(t, models.ActiveTrue, created.Active)
	assert.Empty(t, created.Category)
	assert.Nil(t, created.OTT)
	assert.Equal(t, 1, f.plans.Len())
}

func TestAddPlan_DefaultsType(t *testing.T) {
	f := newFixture(t, broadband.Options{})

	created, err := f.svc.AddPlan(context.Background(), models.Plan{Price: "100"})
	require.NoError(t, err)

	assert.Equal(t, models.DefaultPlanType, created.PlanType)
}

func TestAddPlan_DuplicateID(t *testing.T) {
	f := newFixture(t, broadband.Options{NewID: func() string { return "same" }})
	ctx := context.Background()

	_, err := f.svc.AddPlan(ctx, models.Plan{Price: "100"})
	require.NoError(t, err)

	_, err = f.svc.AddPlan(ctx, models.Plan{Price: "200"})
	assert.ErrorIs(t, err, broadband.ErrDuplicatePlan)
	assert.NotErrorIs(t, err, broadband.ErrStoreUnavailable)

	got, err := f.plans.Get(ctx, "Broadband", "same")
	require.NoError(t, err)
	assert.Equal(t, "100", got.Price, "conflito não pode sobrescrever")
}

func TestAddPlan_StoreUnavailable(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	store := &dyndb.MockStore[models.Plan]{
		PutIfAbsentFn: func(ctx context.Context, item models.Plan) error {
			return fmt.Errorf("dyndb: put failed: %w: %w", dyndb.ErrUnavailable, errors.New("connection reset"))
		},
	}
	svc := broadband.NewService(store, f.conns, f.cache, broadband.Options{Metrics: f.metrics})

	_, err := svc.AddPlan(context.Background(), models.Plan{Price: "1"})

	assert.ErrorIs(t, err, broadband.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, broadband.ErrDuplicatePlan)
	assert.Equal(t, float64(1), f.metrics.Total(metrics.StoreError))
}

func TestUpdatePlan(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	ctx := context.Background()

	created, err := f.svc.AddPlan(ctx, models.Plan{Price: "300", Category: "Gold", OTT: []string{"Netflix"}})
	require.NoError(t, err)

	updated, err := f.svc.UpdatePlan(ctx, models.Plan{Price: "350", Speed: "100"}, created.PlanID)
	require.NoError(t, err)

	assert.Equal(t, created.PlanID, updated.PlanID)
	assert.Equal(t, "350", updated.Price)
	assert.Equal(t, "100", updated.Speed)
	// substituição completa
	assert.Empty(t, updated.Category)
	assert.Nil(t, updated.OTT)
	assert.Equal(t, models.ActiveTrue, updated.Active)
}

func TestUpdatePlan_NotFound(t *testing.T) {
	f := newFixture(t, broadband.Options{})

	_, err := f.svc.UpdatePlan(context.Background(), models.Plan{Price: "1"}, "missing")

	assert.ErrorIs(t, err, broadband.ErrNotFound)
	assert.Zero(t, f.plans.Len(), "update não pode criar o item")
}

func TestUpdatePlan_PostReadIsAuthoritative(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	var gets int32
	store := &dyndb.MockStore[models.Plan]{
		GetFn: func(ctx context.Context, hashKey, sortKey any) (*models.Plan, error) {
			if atomic.AddInt32(&gets, 1) == 1 {
				return &models.Plan{PlanID: "ghost", Active: models.ActiveTrue}, nil
			}
			return nil, dyndb.ErrNotFound
		},
		UpdateFn: func(ctx context.Context, hashKey, sortKey any, changes map[string]any) error { return nil },
	}
	svc := broadband.NewService(store, f.conns, f.cache, broadband.Options{})

	_, err := svc.UpdatePlan(context.Background(), models.Plan{Price: "1"}, "ghost")

	assert.ErrorIs(t, err, broadband.ErrNotFound)
	assert.Equal(t, int32(2), atomic.LoadInt32(&gets))
}

func TestUpdatePlan_DeletedPlanStaysInactive(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	ctx := context.Background()

	created, err := f.svc.AddPlan(ctx, models.Plan{Price: "300"})
	require.NoError(t, err)
	_, err = f.svc.DeletePlan(ctx, created.PlanID)
	require.NoError(t, err)

	_, err = f.svc.UpdatePlan(ctx, models.Plan{Price: "400"}, created.PlanID)
	assert.ErrorIs(t, err, broadband.ErrNotFound)

	got, err := f.plans.Get(ctx, "Broadband", created.PlanID)
	require.NoError(t, err)
	assert.Equal(t, models.ActiveFalse, got.Active)
	assert.Equal(t, "300", got.Price)

	active := models.NewFilterRequest()
	active.Active = models.String(models.ActiveTrue)
	plans, err := f.svc.ListPlans(ctx, active)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestUpdatePlan_KeepsStoredActiveWhenOmitted(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	ctx := context.Background()

	created, err := f.svc.AddPlan(ctx, models.Plan{Price: "300"})
	require.NoError(t, err)

	updated, err := f.svc.UpdatePlan(ctx, models.Plan{Price: "400"}, created.PlanID)
	require.NoError(t, err)
	assert.Equal(t, models.ActiveTrue, updated.Active)

	updated, err = f.svc.UpdatePlan(ctx, models.Plan{Price: "400", Active: models.ActiveFalse}, created.PlanID)
	require.NoError(t, err)
	assert.Equal(t, models.ActiveFalse, updated.Active)
}

func TestDeletePlan(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	ctx := context.Background()

	created, err := f.svc.AddPlan(ctx, models.Plan{Price: "300"})
	require.NoError(t, err)

	deleted, err := f.svc.DeletePlan(ctx, created.PlanID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := f.plans.Get(ctx, "Broadband", created.PlanID)
	require.NoError(t, err)
	assert.Equal(t, models.ActiveFalse, got.Active)
	assert.Equal(t, "300", got.Price, "soft delete só altera Active")

	deleted, err = f.svc.DeletePlan(ctx, created.PlanID)
	require.NoError(t, err)
	assert.False(t, deleted, "segunda remoção não altera nada")
}

func TestDeletePlan_NotFoundDoesNotMutate(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	var updates int32
	store := &dyndb.MockStore[models.Plan]{
		UpdateFn: func(ctx context.Context, hashKey, sortKey any, changes map[string]any) error {
			atomic.AddInt32(&updates, 1)
			return nil
		},
	}
	svc := broadband.NewService(store, f.conns, f.cache, broadband.Options{})

	_, err := svc.DeletePlan(context.Background(), "missing")

	assert.ErrorIs(t, err, broadband.ErrNotFound)
	assert.Zero(t, atomic.LoadInt32(&updates))
}

func TestListPlans_CacheAside(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	ctx := context.Background()

	for _, price := range []string{"100", "200", "300"} {
		_, err := f.svc.AddPlan(ctx, models.Plan{Price: price})
		require.NoError(t, err)
	}

	r := models.NewFilterRequest()
	first, err := f.svc.ListPlans(ctx, r)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, float64(1), f.metrics.Total(metrics.CacheMiss))
	assert.Len(t, f.planKeys(), 1)

	// o hit não chega ao store
	svc := broadband.NewService(&dyndb.MockStore[models.Plan]{
		FindFn: func(ctx context.Context, spec dyndb.QuerySpec) ([]models.Plan, error) {
			t.Fatal("store não deveria ser consultado")
			return nil, nil
		},
	}, f.conns, f.cache, broadband.Options{Metrics: f.metrics})

	second, err := svc.ListPlans(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, float64(1), f.metrics.Total(metrics.CacheHit))
}

func TestListPlans_Pagination(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.AddPlan(ctx, models.Plan{Price: fmt.Sprint(i)})
		require.NoError(t, err)
	}

	tests := []struct {
		name          string
		offset, limit int
		want          []string
	}{
		{"primeira página", 0, 2, []string{"id-001", "id-002"}},
		{"meio", 2, 2, []string{"id-003", "id-004"}},
		{"última incompleta", 4, 10, []string{"id-005"}},
		{"offset além do fim", 50, 10, []string{}},
		{"offset igual ao total", 5, 10, []string{}},
		{"offset negativo", -3, 1, []string{"id-001"}},
		{"limit zero", 0, 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := models.NewFilterRequest()
			r.Offset, r.Limit = tt.offset, tt.limit

			plans, err := f.svc.ListPlans(ctx, r)
			require.NoError(t, err)
			require.NotNil(t, plans)

			ids := []string{}
			for _, p := range plans {
				ids = append(ids, p.PlanID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestListPlans_Filters(t *testing.T) {
	ctx := context.Background()
	seed := func(f *fixture) {
		for _, p := range []models.Plan{
			{Price: "1", Speed: "100", Category: "Gold"},
			{Price: "2", Speed: "100", Category: "Silver"},
			{Price: "3", Speed: "50", Category: "Gold"},
		} {
			_, err := f.svc.AddPlan(ctx, p)
			require.NoError(t, err)
		}
	}

	t.Run("speed", func(t *testing.T) {
		f := newFixture(t, broadband.Options{})
		seed(f)
		r := models.NewFilterRequest()
		r.Speed = models.String("100")

		plans, err := f.svc.ListPlans(ctx, r)
		require.NoError(t, err)
		assert.Len(t, plans, 2)
	})

	t.Run("category ignorada por padrão", func(t *testing.T) {
		f := newFixture(t, broadband.Options{})
		seed(f)
		r := models.NewFilterRequest()
		r.Category = models.String("Gold")

		plans, err := f.svc.ListPlans(ctx, r)
		require.NoError(t, err)
		assert.Len(t, plans, 3)
	})

	t.Run("category com filtros estendidos", func(t *testing.T) {
		f := newFixture(t, broadband.Options{ExtendedFilters: true})
		seed(f)
		r := models.NewFilterRequest()
		r.Category = models.String("Gold")

		plans, err := f.svc.ListPlans(ctx, r)
		require.NoError(t, err)
		assert.Len(t, plans, 2)
	})

	t.Run("planId", func(t *testing.T) {
		f := newFixture(t, broadband.Options{})
		seed(f)
		r := models.NewFilterRequest()
		r.PlanID = models.String("id-002")

		plans, err := f.svc.ListPlans(ctx, r)
		require.NoError(t, err)
		require.Len(t, plans, 1)
		assert.Equal(t, "2", plans[0].Price)
	})
}

func TestListPlans_MutationsInvalidateListings(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	ctx := context.Background()

	created, err := f.svc.AddPlan(ctx, models.Plan{Price: "300", Speed: "100"})
	require.NoError(t, err)

	active := models.NewFilterRequest()
	active.Active = models.String(models.ActiveTrue)
	bySpeed := models.NewFilterRequest()
	bySpeed.Speed = models.String("100")

	for _, r := range []models.FilterRequest{active, bySpeed} {
		_, err := f.svc.ListPlans(ctx, r)
		require.NoError(t, err)
	}
	require.Len(t, f.planKeys(), 2)

	_, err = f.svc.UpdatePlan(ctx, models.Plan{Price: "350", Speed: "200"}, created.PlanID)
	require.NoError(t, err)
	assert.Empty(t, f.planKeys())

	plans, err := f.svc.ListPlans(ctx, bySpeed)
	require.NoError(t, err)
	assert.Empty(t, plans, "listagem antiga não pode voltar do cache")

	plans, err = f.svc.ListPlans(ctx, active)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "350", plans[0].Price)

	_, err = f.svc.DeletePlan(ctx, created.PlanID)
	require.NoError(t, err)

	plans, err = f.svc.ListPlans(ctx, active)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestListPlans_CacheFailures(t *testing.T) {
	t.Run("entrada corrompida", func(t *testing.T) {
		f := newFixture(t, broadband.Options{})
		key := cache.KeyFor(models.NewFilterRequest())
		require.NoError(t, f.mr.Set(cache.DefaultPlanNamespace+"::"+key, "{"))

		_, err := f.svc.ListPlans(context.Background(), models.NewFilterRequest())

		assert.ErrorIs(t, err, broadband.ErrSerialization)
	})

	t.Run("redis fora", func(t *testing.T) {
		f := newFixture(t, broadband.Options{})
		f.mr.Close()

		_, err := f.svc.ListPlans(context.Background(), models.NewFilterRequest())

		assert.ErrorIs(t, err, broadband.ErrCacheUnavailable)
		assert.NotErrorIs(t, err, broadband.ErrStoreUnavailable)
	})

	t.Run("store fora", func(t *testing.T) {
		f := newFixture(t, broadband.Options{})
		svc := broadband.NewService(&dyndb.MockStore[models.Plan]{
			FindFn: func(ctx context.Context, spec dyndb.QuerySpec) ([]models.Plan, error) {
				return nil, fmt.Errorf("dyndb: query failed: %w", dyndb.ErrUnavailable)
			},
		}, f.conns, f.cache, broadband.Options{})

		_, err := svc.ListPlans(context.Background(), models.NewFilterRequest())

		assert.ErrorIs(t, err, broadband.ErrStoreUnavailable)
		assert.Empty(t, f.planKeys(), "falha não pode ser cacheada")
	})
}

// flakyCache falha a invalidação a partir da chamada failFrom.
type flakyCache struct {
	*cache.Cache
	calls    int32
	failFrom int32
}

func (c *flakyCache) InvalidatePlans(ctx context.Context) (int, error) {
	if atomic.AddInt32(&c.calls, 1) >= c.failFrom {
		return 0, fmt.Errorf("%w: scan: i/o timeout", cache.ErrUnavailable)
	}
	return c.Cache.InvalidatePlans(ctx)
}

func TestMutations_InvalidationFailure(t *testing.T) {
	t.Run("antes da escrita aborta", func(t *testing.T) {
		f := newFixture(t, broadband.Options{})
		svc := broadband.NewService(f.plans, f.conns, &flakyCache{Cache: f.cache, failFrom: 1}, broadband.Options{})

		_, err := svc.AddPlan(context.Background(), models.Plan{Price: "1"})

		assert.ErrorIs(t, err, broadband.ErrCacheUnavailable)
		assert.Zero(t, f.plans.Len())
	})

	t.Run("depois da escrita só registra", func(t *testing.T) {
		f := newFixture(t, broadband.Options{})
		svc := broadband.NewService(f.plans, f.conns, &flakyCache{Cache: f.cache, failFrom: 2},
			broadband.Options{Metrics: f.metrics})

		created, err := svc.AddPlan(context.Background(), models.Plan{Price: "1"})

		require.NoError(t, err)
		assert.NotEmpty(t, created.PlanID)
		assert.Equal(t, 1, f.plans.Len())
		assert.Equal(t, float64(1), f.metrics.Total(metrics.InvalidationFailed))
	})
}

func TestGetPlanDetails(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	ctx := context.Background()

	for _, price := range []string{"100", "200"} {
		_, err := f.svc.AddPlan(ctx, models.Plan{Price: price})
		require.NoError(t, err)
	}

	details, err := f.svc.GetPlanDetails(ctx, "", []string{"id-001", "id-002", "id-001", "missing", ""})
	require.NoError(t, err)

	assert.Len(t, details, 2)
	assert.Equal(t, "100", details["id-001"].Price)
	assert.Equal(t, "200", details["id-002"].Price)

	details, err = f.svc.GetPlanDetails(ctx, "Fiber", []string{"id-001"})
	require.NoError(t, err)
	assert.Empty(t, details)

	details, err = f.svc.GetPlanDetails(ctx, "Broadband", nil)
	require.NoError(t, err)
	assert.NotNil(t, details)
	assert.Empty(t, details)
}

func TestGetPlanDetails_StoreUnavailable(t *testing.T) {
	f := newFixture(t, broadband.Options{})
	svc := broadband.NewService(&dyndb.MockStore[models.Plan]{
		BatchGetFn: func(ctx context.Context, keys [][2]any) ([]models.Plan, error) {
			return nil, fmt.Errorf("dyndb: batch get: %w", dyndb.ErrUnavailable)
		},
	}, f.conns, f.cache, broadband.Options{})

	_, err := svc.GetPlanDetails(context.Background(), "Broadband", []string{"a"})
	assert.ErrorIs(t, err, broadband.ErrStoreUnavailable)
}
