package statements

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, next Store) (*CachedStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCachedStore(next, client, time.Minute), mr
}

func sampleDocument(net int64) Document {
	return Document{
		ID:               uuid.New(),
		Type:             TypeDRE,
		PeriodKey:        "2024-12",
		BalanceteVersion: balanceteVersion,
		ChartVersion:     chartVersion,
		Payload:          Payload{Totals: map[string]decimal.Decimal{TotalNetProfit: decimal.NewFromInt(net)}},
		GeneratedAt:      fixedNow,
	}
}

func TestCachedStoreReadsThrough(t *testing.T) {
	mem := newMemoryStore()
	cache, mr := newTestCache(t, mem)
	ctx := context.Background()

	require.NoError(t, cache.Upsert(ctx, sampleDocument(1650)))
	doc, err := cache.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)
	assert.Equal(t, "1650", doc.Total(TotalNetProfit).String())
	assert.Equal(t, 1, mem.gets)

	doc, err = cache.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)
	assert.Equal(t, "1650", doc.Total(TotalNetProfit).String())
	assert.Equal(t, 1, mem.gets, "second read is served from redis")

	key, err := cache.key(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))
}

func TestCachedStoreUpsertEvicts(t *testing.T) {
	mem := newMemoryStore()
	cache, _ := newTestCache(t, mem)
	ctx := context.Background()

	require.NoError(t, cache.Upsert(ctx, sampleDocument(1650)))
	_, err := cache.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)

	require.NoError(t, cache.Upsert(ctx, sampleDocument(1700)))
	doc, err := cache.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)
	assert.Equal(t, "1700", doc.Total(TotalNetProfit).String())
	assert.Equal(t, 2, mem.gets)
}

func TestCachedStoreInvalidateBumpsVersion(t *testing.T) {
	mem := newMemoryStore()
	cache, _ := newTestCache(t, mem)
	ctx := context.Background()

	before, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), before)

	require.NoError(t, mem.Upsert(ctx, sampleDocument(1650)))
	_, err = cache.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)

	// Writes that bypass the cache become visible after an invalidation.
	require.NoError(t, mem.Upsert(ctx, sampleDocument(900)))
	doc, err := cache.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)
	assert.Equal(t, "1650", doc.Total(TotalNetProfit).String())

	require.NoError(t, cache.Invalidate(ctx))
	after, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	doc, err = cache.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)
	assert.Equal(t, "900", doc.Total(TotalNetProfit).String())
}

func TestCachedStoreDoesNotCacheMisses(t *testing.T) {
	mem := newMemoryStore()
	cache, _ := newTestCache(t, mem)
	ctx := context.Background()

	_, err := cache.Get(ctx, TypeBP, "2024-12", balanceteVersion)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mem.Upsert(ctx, Document{Type: TypeBP, PeriodKey: "2024-12", BalanceteVersion: balanceteVersion}))
	_, err = cache.Get(ctx, TypeBP, "2024-12", balanceteVersion)
	assert.NoError(t, err)
}

func TestCachedStoreFallsBackWhenRedisIsDown(t *testing.T) {
	mem := newMemoryStore()
	cache, mr := newTestCache(t, mem)
	ctx := context.Background()

	require.NoError(t, mem.Upsert(ctx, sampleDocument(1650)))
	mr.Close()

	doc, err := cache.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)
	assert.Equal(t, "1650", doc.Total(TotalNetProfit).String())
	require.NoError(t, cache.Upsert(ctx, sampleDocument(1700)))
}

func TestCachedStoreWithoutClient(t *testing.T) {
	mem := newMemoryStore()
	cache := NewCachedStore(mem, nil, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Upsert(ctx, sampleDocument(1650)))
	_, err := cache.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))
	require.NoError(t, cache.ListenForInvalidation(ctx))
}

func TestCachedStoreServesGeneratedDocuments(t *testing.T) {
	mem := newMemoryStore()
	cache, _ := newTestCache(t, mem)
	svc := newFixtureService(&mockAccounts{accounts: fixtureChart()}, fixtureBalances(), cache)
	ctx := context.Background()

	generated, err := svc.Generate(ctx, single(TypeDRE, "2024-12"))
	require.NoError(t, err)
	loaded, err := svc.Get(ctx, TypeDRE, "2024-12", balanceteVersion)
	require.NoError(t, err)
	assert.Equal(t, generated.ID, loaded.ID)
	assert.True(t, generated.Total(TotalNetProfit).Equal(loaded.Total(TotalNetProfit)))
}
