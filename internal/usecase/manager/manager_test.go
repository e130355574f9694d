package manager

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedmill/internal/domain/entity"
	"feedmill/internal/infra/bus"
	"feedmill/internal/infra/feed"
	"feedmill/internal/repository"
	"feedmill/internal/resilience/retry"
	"feedmill/internal/usecase/scraper"
)

type fakeSourceRepo struct {
	mu          sync.Mutex
	sources     map[int64]*entity.Source
	initialized map[int64]bool
}

func newFakeSourceRepo(sources ...*entity.Source) *fakeSourceRepo {
	m := map[int64]*entity.Source{}
	for _, s := range sources {
		m[s.ID] = s
	}
	return &fakeSourceRepo{sources: m, initialized: map[int64]bool{}}
}

func (r *fakeSourceRepo) Get(ctx context.Context, id int64) (*entity.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sources[id], nil
}
func (r *fakeSourceRepo) List(ctx context.Context) ([]*entity.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Source
	for _, s := range r.sources {
		out = append(out, s)
	}
	return out, nil
}
func (r *fakeSourceRepo) Create(ctx context.Context, source *entity.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.ID] = source
	return nil
}
func (r *fakeSourceRepo) Update(ctx context.Context, source *entity.Source) error { return nil }
func (r *fakeSourceRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, id)
	return nil
}
func (r *fakeSourceRepo) TouchLastChecked(ctx context.Context, id int64, t time.Time) error {
	return nil
}
func (r *fakeSourceRepo) SetInitialized(ctx context.Context, id int64, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized[id] = true
	if s, ok := r.sources[id]; ok {
		cp := t
		s.DoInitializedAt = &cp
	}
	return nil
}
func (r *fakeSourceRepo) ClearInitialized(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized[id] = false
	if s, ok := r.sources[id]; ok {
		s.DoInitializedAt = nil
	}
	return nil
}

type fakeStateRepo struct {
	mu     sync.Mutex
	states map[int64]*entity.SourceState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: map[int64]*entity.SourceState{}}
}
func (r *fakeStateRepo) Get(ctx context.Context, sourceID int64) (*entity.SourceState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[sourceID], nil
}
func (r *fakeStateRepo) Put(ctx context.Context, state *entity.SourceState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *state
	r.states[state.SourceID] = &cp
	return nil
}
func (r *fakeStateRepo) Delete(ctx context.Context, sourceID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, sourceID)
	return nil
}

type fakeArticleRepo struct{}

func (fakeArticleRepo) Get(ctx context.Context, id int64) (*entity.Article, error) { return nil, nil }
func (fakeArticleRepo) GetBatch(ctx context.Context, ids []int64) ([]*entity.Article, error) {
	return nil, nil
}
func (fakeArticleRepo) InsertNewReturningIDs(ctx context.Context, sourceID int64, entries []repository.FeedEntryInsert) ([]int64, error) {
	return nil, nil
}
func (fakeArticleRepo) MarkSkipped(ctx context.Context, id int64, status entity.ArticleStatus, failReason string, processedAt time.Time) error {
	return nil
}
func (fakeArticleRepo) MarkContentFetched(ctx context.Context, id int64, usedBrowser bool) error {
	return nil
}
func (fakeArticleRepo) MarkFailed(ctx context.Context, id int64, status entity.ArticleStatus, failReason string) error {
	return nil
}
func (fakeArticleRepo) CommitProcessed(ctx context.Context, article *entity.Article) error {
	return nil
}
func (fakeArticleRepo) ExistsByURL(ctx context.Context, url string) (bool, error) { return false, nil }
func (fakeArticleRepo) ExistsByURLBatch(ctx context.Context, urls []string) (map[string]bool, error) {
	return nil, nil
}

type fakePublisher struct{}

func (fakePublisher) Publish(ctx context.Context, articleIDs []int64) error { return nil }

const sampleFeedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Test</title>
<item><title>Only</title><link>https://example.com/a</link></item>
</channel></rss>`

// harness wires a Manager backed by fakes plus a real scraper.Instance
// factory, so Initialize/Trigger exercise the real state machine against a
// local httptest feed server rather than needing a scraper.Instance mock
// (scraper.Instance has no interface seam, by design: see DESIGN.md).
type harness struct {
	mgr     *Manager
	sources *fakeSourceRepo
	states  *fakeStateRepo
	srv     *httptest.Server
}

func newHarness(t *testing.T, sources ...*entity.Source) *harness {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeedXML))
	}))
	t.Cleanup(srv.Close)

	sourceRepo := newFakeSourceRepo(sources...)
	stateRepo := newFakeStateRepo()
	httpClient := &http.Client{Timeout: time.Second}
	fetcher := feed.NewFetcherWithRetryConfig(httpClient, retry.FeedParseConfig())

	factory := func(sourceID int64) *scraper.Instance {
		return scraper.NewInstance(scraper.Deps{
			Sources:   sourceRepo,
			States:    stateRepo,
			Articles:  fakeArticleRepo{},
			Fetcher:   fetcher,
			Publisher: fakePublisher{},
			Logger:    slog.New(slog.NewTextHandler(testWriter{t}, nil)),
		}, sourceID)
	}

	mgr := New(sourceRepo, factory, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
	return &harness{mgr: mgr, sources: sourceRepo, states: stateRepo, srv: srv}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestManager_Status_UninitializedSourceHasNoInstance(t *testing.T) {
	h := newHarness(t)

	status, err := h.mgr.Status(999)
	require.NoError(t, err)
	assert.Equal(t, entity.SchedulerUninitialized, status.State)
}

func TestManager_Initialize_ArmsScheduleAndMarksSourceInitialized(t *testing.T) {
	source := &entity.Source{ID: 1, URL: "http://example.com/feed", Name: "Test", FrequencyTier: entity.TierHourly}
	h := newHarness(t, source)

	require.NoError(t, h.mgr.Initialize(context.Background(), source.ID))

	status, err := h.mgr.Status(source.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SchedulerScheduled, status.State)
	require.NotNil(t, status.NextTickAt)
	assert.True(t, h.sources.initialized[source.ID])
}

func TestManager_Trigger_UnknownSourceReturnsError(t *testing.T) {
	h := newHarness(t)
	err := h.mgr.Trigger(123)
	require.Error(t, err)
}

func TestManager_Trigger_KnownSourceArmsImmediateTick(t *testing.T) {
	source := &entity.Source{ID: 1, URL: "http://example.com/feed", Name: "Test", FrequencyTier: entity.TierHourly}
	h := newHarness(t, source)

	require.NoError(t, h.mgr.Initialize(context.Background(), source.ID))
	require.NoError(t, h.mgr.Trigger(source.ID))
}

func TestManager_Destroy_RemovesInstanceAndClearsSource(t *testing.T) {
	source := &entity.Source{ID: 1, URL: "http://example.com/feed", Name: "Test", FrequencyTier: entity.TierHourly}
	h := newHarness(t, source)
	require.NoError(t, h.mgr.Initialize(context.Background(), source.ID))

	require.NoError(t, h.mgr.Destroy(context.Background(), source.ID))

	status, err := h.mgr.Status(source.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SchedulerUninitialized, status.State)
	assert.False(t, h.sources.initialized[source.ID])
}

func TestManager_Destroy_UnknownSourceIsNoop(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.mgr.Destroy(context.Background(), 42))
}

func TestManager_Reconcile_InitializesNewSourcesAndDestroysStale(t *testing.T) {
	fresh := &entity.Source{ID: 1, URL: "http://example.com/feed", Name: "Fresh", FrequencyTier: entity.TierHourly}
	h := newHarness(t, fresh)

	result, err := h.mgr.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Initialized)
	assert.Equal(t, 0, result.Destroyed)

	status, err := h.mgr.Status(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SchedulerScheduled, status.State)

	// Source removed from the repository between reconcile passes: its
	// running instance should be torn down on the next pass.
	require.NoError(t, h.sources.Delete(context.Background(), fresh.ID))

	result, err = h.mgr.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Initialized)
	assert.Equal(t, 1, result.Destroyed)

	status, err = h.mgr.Status(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SchedulerUninitialized, status.State)
}

func TestManager_Reconcile_AlreadyInitializedSourceIsLeftAlone(t *testing.T) {
	now := time.Now()
	source := &entity.Source{ID: 1, URL: "http://example.com/feed", Name: "Test", FrequencyTier: entity.TierHourly, DoInitializedAt: &now}
	h := newHarness(t, source)

	result, err := h.mgr.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Initialized)

	// Reconcile never created an instance since the source was already
	// marked initialized, so Status reports UNINITIALIZED (no in-memory
	// scheduler yet, which is accurate: this process hasn't built one).
	status, err := h.mgr.Status(source.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SchedulerUninitialized, status.State)
}

var _ bus.Publisher = fakePublisher{}
