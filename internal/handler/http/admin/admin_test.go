package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedmill/internal/domain/entity"
	"feedmill/internal/infra/feed"
	"feedmill/internal/repository"
	"feedmill/internal/resilience/retry"
	"feedmill/internal/usecase/manager"
	"feedmill/internal/usecase/scraper"
)

type fakeSourceRepo struct {
	mu      sync.Mutex
	sources map[int64]*entity.Source
}

func newFakeSourceRepo(sources ...*entity.Source) *fakeSourceRepo {
	m := map[int64]*entity.Source{}
	for _, s := range sources {
		m[s.ID] = s
	}
	return &fakeSourceRepo{sources: m}
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
	if s, ok := r.sources[id]; ok {
		cp := t
		s.DoInitializedAt = &cp
	}
	return nil
}
func (r *fakeSourceRepo) ClearInitialized(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
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

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) { return len(p), nil }

// newTestMux builds a mux wired the same way cmd/worker/main.go wires the
// admin surface, backed by fakes plus a real scraper.Instance factory so
// Initialize/Trigger exercise the live state machine.
func newTestMux(t *testing.T, sources ...*entity.Source) (*http.ServeMux, *fakeSourceRepo) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleFeedXML))
	}))
	t.Cleanup(srv.Close)

	sourceRepo := newFakeSourceRepo(sources...)
	stateRepo := newFakeStateRepo()
	httpClient := &http.Client{Timeout: time.Second}
	fetcher := feed.NewFetcherWithRetryConfig(httpClient, retry.FeedParseConfig())
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))

	factory := func(sourceID int64) *scraper.Instance {
		return scraper.NewInstance(scraper.Deps{
			Sources:   sourceRepo,
			States:    stateRepo,
			Articles:  fakeArticleRepo{},
			Fetcher:   fetcher,
			Publisher: fakePublisher{},
			Logger:    logger,
		}, sourceID)
	}

	mgr := manager.New(sourceRepo, factory, logger)
	mux := http.NewServeMux()
	Register(mux, mgr, sourceRepo)
	return mux, sourceRepo
}

func TestAdmin_Status_UnknownSourceReportsUninitialized(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/sources/42/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.SchedulerUninitialized, resp.State)
}

func TestAdmin_Status_InvalidIDIsBadRequest(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/sources/not-a-number/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_Initialize_CreatesSourceAndArmsSchedule(t *testing.T) {
	mux, sourceRepo := newTestMux(t)

	body, err := json.Marshal(initializeRequest{ID: 7, URL: "http://example.com/feed", ScrapeFrequency: 1})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/sources", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	created, err := sourceRepo.Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotNil(t, created.DoInitializedAt)

	statusReq := httptest.NewRequest(http.MethodGet, "/sources/7/status", nil)
	statusRec := httptest.NewRecorder()
	mux.ServeHTTP(statusRec, statusReq)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &resp))
	assert.Equal(t, entity.SchedulerScheduled, resp.State)
}

func TestAdmin_Initialize_InvalidBodyIsBadRequest(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/sources", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_Trigger_UnknownSourceIsNotFound(t *testing.T) {
	mux, _ := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/sources/999/trigger", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_Trigger_InitializedSourceIsAccepted(t *testing.T) {
	source := &entity.Source{ID: 3, URL: "http://example.com/feed", Name: "Test", FrequencyTier: entity.TierHourly}
	mux, _ := newTestMux(t, source)

	body, err := json.Marshal(initializeRequest{ID: 3, URL: source.URL, ScrapeFrequency: 1})
	require.NoError(t, err)
	initializeReq := httptest.NewRequest(http.MethodPost, "/sources", bytes.NewReader(body))
	initializeRec := httptest.NewRecorder()
	mux.ServeHTTP(initializeRec, initializeReq)
	require.Equal(t, http.StatusCreated, initializeRec.Code)

	triggerReq := httptest.NewRequest(http.MethodPost, "/sources/3/trigger", nil)
	triggerRec := httptest.NewRecorder()
	mux.ServeHTTP(triggerRec, triggerReq)
	assert.Equal(t, http.StatusAccepted, triggerRec.Code)
}

func TestAdmin_Delete_RemovesSchedule(t *testing.T) {
	source := &entity.Source{ID: 5, URL: "http://example.com/feed", Name: "Test", FrequencyTier: entity.TierHourly}
	mux, sourceRepo := newTestMux(t, source)

	body, err := json.Marshal(initializeRequest{ID: 5, URL: source.URL, ScrapeFrequency: 1})
	require.NoError(t, err)
	initReq := httptest.NewRequest(http.MethodPost, "/sources", bytes.NewReader(body))
	initRec := httptest.NewRecorder()
	mux.ServeHTTP(initRec, initReq)
	require.Equal(t, http.StatusCreated, initRec.Code)

	deleteReq := httptest.NewRequest(http.MethodDelete, "/sources/5", nil)
	deleteRec := httptest.NewRecorder()
	mux.ServeHTTP(deleteRec, deleteReq)
	assert.Equal(t, http.StatusOK, deleteRec.Code)

	got, err := sourceRepo.Get(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.DoInitializedAt)
}
