package orchestrator_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/jonesrussell/north-cloud/medgraph/internal/adapter"
	"github.com/jonesrussell/north-cloud/medgraph/internal/config"
	"github.com/jonesrussell/north-cloud/medgraph/internal/dedup"
	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/events"
	"github.com/jonesrussell/north-cloud/medgraph/internal/fetcher"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
	"github.com/jonesrussell/north-cloud/medgraph/internal/orchestrator"
	"github.com/jonesrussell/north-cloud/medgraph/internal/orchestrator/mocks"
	"github.com/jonesrussell/north-cloud/medgraph/internal/repository"
	"github.com/jonesrussell/north-cloud/medgraph/internal/sources"
)

var usa = domain.CountryContext{Code: "USA", Name: "United States"}

func pipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{RefreshDays: 30, Parallelism: 1}
}

// countingAdapter records how often it is fetched.
type countingAdapter struct {
	name    string
	records []domain.RawRecord
	err     error
	panics  bool
	calls   atomic.Int32
}

func (c *countingAdapter) Descriptor() domain.SourceDescriptor {
	return domain.SourceDescriptor{Name: c.name, Tier: domain.TierOther}
}

func (c *countingAdapter) Fetch(context.Context, domain.CountryContext) ([]domain.RawRecord, error) {
	c.calls.Add(1)
	if c.panics {
		panic("unexpected markup")
	}
	if c.err != nil {
		return nil, c.err
	}
	out := make([]domain.RawRecord, len(c.records))
	copy(out, c.records)
	return out, nil
}

func hospital(name string) domain.RawRecord {
	return domain.RawRecord{Name: name, Type: domain.TypeHospital}
}

func TestRun_FreshCountryIsSkippedWithoutFetching(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)
	pub := mocks.NewMockPublisher(ctrl)

	src := &countingAdapter{name: "CMS", records: []domain.RawRecord{hospital("Mercy Hospital")}}
	registry.EXPECT().Lookup("USA").Return(usa, []adapter.Adapter{src}, nil)
	store.EXPECT().IsStale(gomock.Any(), "USA", 30).Return(false, nil)
	pub.EXPECT().PublishAsync(gomock.Cond(func(x any) bool {
		ev, ok := x.(events.RunEvent)
		return ok && ev.EventType == events.RunSkipped && ev.Country == "USA"
	}))

	o := orchestrator.New(pipelineConfig(), registry, store, dd, logger.NewNop(), orchestrator.WithPublisher(pub))
	res := o.Run(context.Background(), "usa", orchestrator.RunOptions{RefreshDays: 30})

	assert.Equal(t, orchestrator.StateSkipped, res.State)
	assert.Equal(t, []orchestrator.State{
		orchestrator.StateIdle, orchestrator.StateCheckFreshness, orchestrator.StateSkipped,
	}, res.Trace)
	assert.Zero(t, src.calls.Load(), "fresh country must not be fetched")
	assert.True(t, res.Succeeded())
}

func TestRun_ForceBypassesFreshness(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)

	src := &countingAdapter{name: "CMS", records: []domain.RawRecord{hospital("Mercy Hospital")}}
	registry.EXPECT().Lookup("USA").Return(usa, []adapter.Adapter{src}, nil)
	store.EXPECT().UpsertBatch(gomock.Any(), "USA", gomock.Len(1)).
		Return(repository.UpsertStats{Inserted: 1}, nil)
	dd.EXPECT().Deduplicate(gomock.Any(), "USA").Return(dedup.Result{Candidates: 1}, nil)

	o := orchestrator.New(pipelineConfig(), registry, store, dd, logger.NewNop())
	res := o.Run(context.Background(), "USA", orchestrator.RunOptions{Force: true})

	require.NoError(t, res.Err)
	assert.Equal(t, orchestrator.StateDone, res.State)
	assert.Equal(t, []orchestrator.State{
		orchestrator.StateIdle,
		orchestrator.StateCheckFreshness,
		orchestrator.StateExtracting,
		orchestrator.StateNormalizing,
		orchestrator.StatePersisting,
		orchestrator.StateDeduplicating,
		orchestrator.StateDone,
	}, res.Trace)
	assert.Equal(t, 1, res.Inserted)
}

func TestRun_AdapterFailuresAreIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)

	adapters := []adapter.Adapter{
		&countingAdapter{name: "A", records: []domain.RawRecord{hospital("Alpha Hospital"), hospital("Beta Hospital")}},
		&countingAdapter{name: "Panicky", panics: true},
		&countingAdapter{name: "Broken", err: errors.New("unexpected status")},
		&countingAdapter{name: "B", records: []domain.RawRecord{hospital("Gamma Hospital")}},
	}
	registry.EXPECT().Lookup("USA").Return(usa, adapters, nil)
	store.EXPECT().IsStale(gomock.Any(), "USA", 30).Return(true, nil)

	var persisted []domain.Institution
	store.EXPECT().UpsertBatch(gomock.Any(), "USA", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, recs []domain.Institution) (repository.UpsertStats, error) {
			persisted = recs
			return repository.UpsertStats{Inserted: len(recs)}, nil
		})
	dd.EXPECT().Deduplicate(gomock.Any(), "USA").Return(dedup.Result{}, nil)

	o := orchestrator.New(pipelineConfig(), registry, store, dd, logger.NewNop())
	res := o.Run(context.Background(), "USA", orchestrator.RunOptions{})

	assert.Equal(t, orchestrator.StateDone, res.State)
	assert.Equal(t, []string{"Panicky", "Broken"}, res.FailedSources())
	require.Len(t, persisted, 3)
	for _, inst := range persisted {
		assert.Equal(t, "USA", inst.Country)
		assert.NotEmpty(t, inst.Attributes.Source())
	}
	assert.Equal(t, 3, res.Fetched)
}

func TestRun_NormalizesBeforePersisting(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)

	rec := domain.RawRecord{
		Name:      "  St. Mary  Hospital[3] ",
		Type:      domain.TypeHospital,
		Latitude:  domain.Float(200),
		Longitude: domain.Float(-71.1),
	}
	registry.EXPECT().Lookup("USA").
		Return(usa, []adapter.Adapter{&countingAdapter{name: "CMS", records: []domain.RawRecord{rec}}}, nil)
	store.EXPECT().UpsertBatch(gomock.Any(), "USA", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, recs []domain.Institution) (repository.UpsertStats, error) {
			require.Len(t, recs, 1)
			assert.Equal(t, "St. Mary Hospital", recs[0].Name)
			assert.Nil(t, recs[0].Latitude, "latitude 200 is out of range")
			require.NotNil(t, recs[0].Longitude)
			return repository.UpsertStats{Inserted: 1}, nil
		})
	dd.EXPECT().Deduplicate(gomock.Any(), "USA").Return(dedup.Result{}, nil)

	o := orchestrator.New(pipelineConfig(), registry, store, dd, logger.NewNop())
	res := o.Run(context.Background(), "USA", orchestrator.RunOptions{Force: true})
	assert.Equal(t, orchestrator.StateDone, res.State)
}

func TestRun_UnknownCountryFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)
	registry := sources.NewRegistry(nil, 0)

	o := orchestrator.New(pipelineConfig(), registry, store, dd, logger.NewNop())
	res := o.Run(context.Background(), "FRA", orchestrator.RunOptions{})

	assert.Equal(t, orchestrator.StateFailed, res.State)
	require.ErrorIs(t, res.Err, sources.ErrUnknownCountry)
	assert.Equal(t, []orchestrator.State{orchestrator.StateIdle, orchestrator.StateFailed}, res.Trace)
	assert.False(t, res.Succeeded())
}

func TestRun_StorageErrorFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)
	pub := mocks.NewMockPublisher(ctrl)

	registry.EXPECT().Lookup("CAN").Return(domain.CountryContext{Code: "CAN"}, nil, nil)
	store.EXPECT().IsStale(gomock.Any(), "CAN", 30).Return(false, errors.New("connection refused"))
	pub.EXPECT().PublishAsync(gomock.Cond(func(x any) bool {
		ev, ok := x.(events.RunEvent)
		return ok && ev.EventType == events.RunFailed && ev.Payload.Error != ""
	}))

	o := orchestrator.New(pipelineConfig(), registry, store, dd, logger.NewNop(), orchestrator.WithPublisher(pub))
	res := o.Run(context.Background(), "CAN", orchestrator.RunOptions{})

	assert.Equal(t, orchestrator.StateFailed, res.State)
	assert.Error(t, res.Err)
}

func TestRun_RetryExhaustionStillCompletes(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.Default().Fetcher
	cfg.Retries = 3
	f := fetcher.New(cfg, logger.NewNop(),
		fetcher.WithSleeper(func(context.Context, time.Duration) error { return nil }))

	down := &adapter.HTML{
		Source:  domain.SourceDescriptor{Name: "Down"},
		URL:     srv.URL,
		Parse:   func(domain.CountryContext, *goquery.Document, *fetcher.Response) ([]domain.RawRecord, error) { return nil, nil },
		Fetcher: f,
	}

	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)
	registry.EXPECT().Lookup("USA").Return(usa, []adapter.Adapter{down}, nil)
	store.EXPECT().UpsertBatch(gomock.Any(), "USA", gomock.Len(0)).Return(repository.UpsertStats{}, nil)
	dd.EXPECT().Deduplicate(gomock.Any(), "USA").Return(dedup.Result{}, nil)

	o := orchestrator.New(pipelineConfig(), registry, store, dd, logger.NewNop())
	res := o.Run(context.Background(), "USA", orchestrator.RunOptions{Force: true})

	assert.Equal(t, orchestrator.StateDone, res.State)
	assert.Equal(t, int32(3), hits.Load())
	require.Len(t, res.Adapters, 1)
	assert.ErrorIs(t, res.Adapters[0].Err, fetcher.ErrExhausted)
	assert.Zero(t, res.Fetched)
}

// memStore keeps institutions keyed by country and name.
type memStore struct {
	mu   sync.Mutex
	rows map[string]domain.Institution
}

func (m *memStore) IsStale(context.Context, string, int) (bool, error) { return true, nil }

func (m *memStore) UpsertBatch(_ context.Context, country string, recs []domain.Institution) (repository.UpsertStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats repository.UpsertStats
	for _, r := range recs {
		if err := r.Validate(country); err != nil {
			stats.Rejected++
			continue
		}
		key := country + "|" + r.Name
		if _, ok := m.rows[key]; ok {
			stats.Skipped++
			continue
		}
		m.rows[key] = r
		stats.Inserted++
	}
	return stats, nil
}

func TestRun_SecondRunInsertsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)
	store := &memStore{rows: map[string]domain.Institution{}}

	src := &countingAdapter{name: "CMS", records: []domain.RawRecord{
		hospital("Mercy Hospital"),
		hospital("General Hospital"),
		{Name: "   ", Type: domain.TypeHospital},
	}}
	registry.EXPECT().Lookup("USA").Return(usa, []adapter.Adapter{src}, nil).Times(2)
	dd.EXPECT().Deduplicate(gomock.Any(), "USA").Return(dedup.Result{}, nil).Times(2)

	o := orchestrator.New(pipelineConfig(), registry, store, dd, logger.NewNop())

	first := o.Run(context.Background(), "USA", orchestrator.RunOptions{})
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 1, first.Rejected)

	second := o.Run(context.Background(), "USA", orchestrator.RunOptions{})
	assert.Zero(t, second.Inserted)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, store.rows, 2)
}

func TestRunMany_DeduplicatesAndPauses(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)

	registry.EXPECT().Lookup(gomock.Any()).
		DoAndReturn(func(code string) (domain.CountryContext, []adapter.Adapter, error) {
			return domain.CountryContext{Code: code}, nil, nil
		}).Times(2)
	store.EXPECT().IsStale(gomock.Any(), gomock.Any(), 30).Return(false, nil).Times(2)

	var pauses []time.Duration
	cfg := pipelineConfig()
	cfg.CountryPause = 2 * time.Second
	o := orchestrator.New(cfg, registry, store, dd, logger.NewNop(),
		orchestrator.WithPause(func(_ context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		}))

	results, err := o.RunMany(context.Background(), []string{"usa", "CAN", "USA"}, orchestrator.RunOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "USA", results[0].Country)
	assert.Equal(t, "CAN", results[1].Country)
	assert.Equal(t, []time.Duration{2 * time.Second}, pauses)

	summary := orchestrator.Summarize(results)
	assert.Equal(t, 2, summary.Skipped)
	assert.Zero(t, summary.Failed)
}

func TestRunMany_Parallel(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)
	registry := sources.NewRegistry(nil, 0)

	store.EXPECT().IsStale(gomock.Any(), gomock.Any(), 30).Return(false, nil).Times(4)

	cfg := pipelineConfig()
	cfg.Parallelism = 4
	o := orchestrator.New(cfg, registry, store, dd, logger.NewNop())

	results, err := o.RunMany(context.Background(), []string{"USA", "CAN", "CHN", "IND", "ATL"}, orchestrator.RunOptions{})
	require.NoError(t, err)
	require.Len(t, results, 5)

	summary := orchestrator.Summarize(results)
	assert.Equal(t, 4, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, "ATL", results[4].Country)
}

func TestRunMany_CancelledDuringPause(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockRegistry(ctrl)
	store := mocks.NewMockStore(ctrl)
	dd := mocks.NewMockDeduplicator(ctrl)

	registry.EXPECT().Lookup("USA").Return(usa, nil, nil)
	store.EXPECT().IsStale(gomock.Any(), "USA", 30).Return(false, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := pipelineConfig()
	cfg.CountryPause = time.Second
	o := orchestrator.New(cfg, registry, store, dd, logger.NewNop(),
		orchestrator.WithPause(func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	results, err := o.RunMany(ctx, []string{"USA", "CAN"}, orchestrator.RunOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 1)
}
