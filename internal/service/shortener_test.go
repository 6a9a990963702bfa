package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Totarae/shorttty/internal/cache"
	"github.com/Totarae/shorttty/internal/geo"
	"github.com/Totarae/shorttty/internal/model"
	"github.com/Totarae/shorttty/internal/objectstore"
	"github.com/Totarae/shorttty/internal/qr"
	"github.com/Totarae/shorttty/internal/service"
	"github.com/Totarae/shorttty/internal/service/mocks"
	"github.com/Totarae/shorttty/internal/session"
	"github.com/Totarae/shorttty/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type stubRenderer struct {
	err   error
	calls int
}

func (r *stubRenderer) Render(_ context.Context, content string) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png:" + content), nil
}

type stubLocator struct {
	loc geo.Location
	err error
}

func (l stubLocator) Locate(context.Context, string) (geo.Location, error) {
	return l.loc, l.err
}

func newMemoryService(t *testing.T, opts service.Options) (*service.ShortenerService, *storage.LinkStore) {
	t.Helper()
	store, err := storage.NewLinkStore("", zap.NewNop())
	require.NoError(t, err)

	if opts.QR == nil {
		opts.QR = &stubRenderer{}
	}
	if opts.Objects == nil {
		objects, err := objectstore.NewFileStore(t.TempDir(), "http://localhost:8080")
		require.NoError(t, err)
		opts.Objects = objects
	}
	return service.NewShortenerService(store, opts, zap.NewNop(), "http://localhost:8080/"), store
}

func validRequest() model.CreateLinkRequest {
	return model.CreateLinkRequest{Title: "Go docs", LongURL: "https://go.dev/doc/"}
}

func TestCreateLink_InvalidInputNeverReachesRepository(t *testing.T) {
	cases := []struct {
		name  string
		req   model.CreateLinkRequest
		field string
	}{
		{name: "short title", req: model.CreateLinkRequest{Title: "ab", LongURL: "https://go.dev"}, field: "title"},
		{name: "not a url", req: model.CreateLinkRequest{Title: "Docs", LongURL: "go dev"}, field: "longUrl"},
		{name: "bad alias", req: model.CreateLinkRequest{Title: "Docs", LongURL: "https://go.dev", CustomURL: "a_b"}, field: "customUrl"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockRepository(ctrl)
			renderer := &stubRenderer{}

			svc := service.NewShortenerService(repo, service.Options{QR: renderer}, zap.NewNop(), "http://localhost")
			_, err := svc.CreateLink(context.Background(), "u1", tc.req)

			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tc.field)
			assert.Zero(t, renderer.calls)
		})
	}
}

func TestCreateLink_Success(t *testing.T) {
	svc, store := newMemoryService(t, service.Options{})
	svc.SetCodeGenerator(func() (string, error) { return "abc123", nil })

	resp, err := svc.CreateLink(context.Background(), "u1", validRequest())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/abc123", resp.ShortLink)
	assert.Equal(t, "http://localhost:8080/storage/qr-"+resp.ID+".png", resp.QR)
	assert.Equal(t, "u1", resp.UserID)

	saved, err := store.GetLinkByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev/doc/", saved.OriginalURL)

	data, err := svc.Object(context.Background(), "qr-"+resp.ID+".png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png:https://go.dev/doc/"), data)
}

func TestCreateLink_CustomAlias(t *testing.T) {
	svc, _ := newMemoryService(t, service.Options{})

	req := validRequest()
	req.CustomURL = "godocs"
	resp, err := svc.CreateLink(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/godocs", resp.ShortLink)

	_, err = svc.CreateLink(context.Background(), "u2", req)
	assert.ErrorIs(t, err, model.ErrConflict)
}

func TestCreateLink_RetriesOnCollision(t *testing.T) {
	svc, store := newMemoryService(t, service.Options{})
	require.NoError(t, store.CreateLink(context.Background(), &model.Link{
		ID: "existing", UserID: "u0", OriginalURL: "https://a.example", ShortCode: "taken1", CreatedAt: time.Now(),
	}))

	codes := []string{"taken1", "taken1", "free22"}
	svc.SetCodeGenerator(func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	})

	resp, err := svc.CreateLink(context.Background(), "u1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, "free22", resp.ShortCode)
}

func TestCreateLink_GivesUpAfterMaxAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().CodeExists(gomock.Any(), "same00").Return(true, nil).Times(service.MaxCodeAttempts)

	svc := service.NewShortenerService(repo, service.Options{QR: &stubRenderer{}}, zap.NewNop(), "http://localhost")
	svc.SetCodeGenerator(func() (string, error) { return "same00", nil })

	_, err := svc.CreateLink(context.Background(), "u1", validRequest())
	assert.ErrorIs(t, err, service.ErrCodeExhausted)
}

func TestCreateLink_QRFailureAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().CodeExists(gomock.Any(), gomock.Any()).Return(false, nil)

	svc := service.NewShortenerService(repo, service.Options{QR: &stubRenderer{err: errors.New("boom")}}, zap.NewNop(), "http://localhost")

	_, err := svc.CreateLink(context.Background(), "u1", validRequest())
	assert.ErrorIs(t, err, service.ErrQR)
}

func TestPreviewQR(t *testing.T) {
	svc, _ := newMemoryService(t, service.Options{})

	data, err := svc.PreviewQR(context.Background(), "https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, []byte("png:https://go.dev"), data)

	_, err = svc.PreviewQR(context.Background(), "nope")
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestListLinks_FilterAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t, service.Options{})

	first, err := svc.CreateLink(ctx, "u1", model.CreateLinkRequest{Title: "Holiday photos", LongURL: "https://photos.example/1"})
	require.NoError(t, err)
	second, err := svc.CreateLink(ctx, "u1", model.CreateLinkRequest{Title: "Work notes", LongURL: "https://notes.example"})
	require.NoError(t, err)
	_, err = svc.CreateLink(ctx, "u2", model.CreateLinkRequest{Title: "Holiday other", LongURL: "https://other.example"})
	require.NoError(t, err)

	filtered, err := svc.ListLinks(ctx, "u1", "HOLIDAY")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, first.ID, filtered[0].ID)

	require.NoError(t, svc.DeleteLink(ctx, "u1", first.ID))

	all, err := svc.ListLinks(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)

	assert.ErrorIs(t, svc.DeleteLink(ctx, "u2", second.ID), model.ErrNotFound)
}

func TestFilterLinks(t *testing.T) {
	links := []*model.Link{
		{ID: "1", Title: "Alpha", OriginalURL: "https://one.example"},
		{ID: "2", Title: "Beta", OriginalURL: "https://two.example", CustomURL: "promo"},
		{ID: "3", Title: "Gamma", OriginalURL: "https://PROMO.example"},
	}

	assert.Len(t, service.FilterLinks(links, ""), 3)
	assert.Len(t, service.FilterLinks(links, "promo"), 2)
	got := service.FilterLinks(links, "alp")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t, service.Options{})

	a, err := svc.CreateLink(ctx, "u1", model.CreateLinkRequest{Title: "First", LongURL: "https://a.example"})
	require.NoError(t, err)
	_, err = svc.CreateLink(ctx, "u1", model.CreateLinkRequest{Title: "Second", LongURL: "https://b.example"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.RecordClick(ctx, a.Link, "127.0.0.1", "Mozilla/5.0 (iPhone)")
		require.NoError(t, err)
	}

	dash, err := svc.Dashboard(ctx, "u1", "first")
	require.NoError(t, err)
	assert.Equal(t, 2, dash.LinksCreated)
	assert.Equal(t, 3, dash.TotalClicks)
	require.Len(t, dash.Links, 1)
	assert.Equal(t, a.ID, dash.Links[0].ID)
}

func TestLinkDetails(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t, service.Options{
		Geo: stubLocator{loc: geo.Location{City: "Berlin", Country: "Germany"}},
	})

	link, err := svc.CreateLink(ctx, "u1", validRequest())
	require.NoError(t, err)
	_, err = svc.RecordClick(ctx, link.Link, "8.8.8.8", "Mozilla/5.0 (iPad)")
	require.NoError(t, err)

	details, err := svc.LinkDetails(ctx, "u1", link.ID)
	require.NoError(t, err)
	require.Len(t, details.Clicks, 1)
	assert.Equal(t, "tablet", details.Clicks[0].Device)
	assert.Equal(t, 1, details.Stats.TotalClicks)
	assert.Equal(t, "Berlin", details.Stats.TopLocation)

	_, err = svc.LinkDetails(ctx, "someone-else", link.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestLinkQR(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t, service.Options{})

	link, err := svc.CreateLink(ctx, "u1", validRequest())
	require.NoError(t, err)

	data, name, err := svc.LinkQR(ctx, "u1", link.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go docs.png", name)
	assert.Equal(t, []byte("png:https://go.dev/doc/"), data)
}

func TestResolve_UsesCacheAndEvictsOnDelete(t *testing.T) {
	ctx := context.Background()
	mem, err := cache.NewMemory(100)
	require.NoError(t, err)
	defer mem.Close()

	svc, store := newMemoryService(t, service.Options{Cache: mem})
	link, err := svc.CreateLink(ctx, "u1", validRequest())
	require.NoError(t, err)

	got, err := svc.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, link.OriginalURL, got.OriginalURL)

	_, ok, err := mem.Get(ctx, "link:"+link.ShortCode)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.DeleteLink(ctx, "u1", link.ID))
	_, err = svc.Resolve(ctx, link.ShortCode)
	assert.ErrorIs(t, err, model.ErrNotFound)

	exists, err := store.CodeExists(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestResolve_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().GetLinkByCode(gomock.Any(), "missing").Return(nil, model.ErrNotFound)

	svc := service.NewShortenerService(repo, service.Options{QR: qr.NewLocalRenderer(64)}, zap.NewNop(), "http://localhost")
	_, err := svc.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRecordClick_InsertsExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)

	link := &model.Link{ID: "l1", ShortCode: "abc123"}
	repo.EXPECT().InsertClick(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, c *model.Click) error {
		assert.Equal(t, "l1", c.LinkID)
		assert.Equal(t, "mobile", c.Device)
		assert.Empty(t, c.City)
		return nil
	}).Times(1)

	svc := service.NewShortenerService(repo, service.Options{
		Geo: stubLocator{err: context.DeadlineExceeded},
	}, zap.NewNop(), "http://localhost")

	recorded, err := svc.RecordClick(context.Background(), link, "8.8.8.8", "Mozilla/5.0 (Linux; Android 14) Mobile")
	require.NoError(t, err)
	assert.True(t, recorded)
}

func TestRecordClick_DedupWindow(t *testing.T) {
	ctx := context.Background()
	mem, err := cache.NewMemory(100)
	require.NoError(t, err)
	defer mem.Close()

	svc, store := newMemoryService(t, service.Options{Cache: mem, DedupWindow: time.Minute})
	link, err := svc.CreateLink(ctx, "u1", validRequest())
	require.NoError(t, err)

	first, err := svc.RecordClick(ctx, link.Link, "1.2.3.4", "")
	require.NoError(t, err)
	second, err := svc.RecordClick(ctx, link.Link, "1.2.3.4", "")
	require.NoError(t, err)
	other, err := svc.RecordClick(ctx, link.Link, "5.6.7.8", "")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	assert.True(t, other)

	clicks, err := store.ListClicks(ctx, link.ID)
	require.NoError(t, err)
	assert.Len(t, clicks, 2)
}

func TestLogSessionEvents(t *testing.T) {
	svc, _ := newMemoryService(t, service.Options{})
	p := session.NewProvider()

	unsubscribe := svc.LogSessionEvents(p)
	p.Publish(session.Event{Type: session.SignedIn, User: model.User{ID: "u1"}})
	unsubscribe()
}

// blockingRepo задерживает GetLinkByCode после чтения, пока тест не отпустит его.
type blockingRepo struct {
	*storage.LinkStore
	fetched chan struct{}
	release chan struct{}
}

func (r *blockingRepo) GetLinkByCode(ctx context.Context, code string) (*model.Link, error) {
	link, err := r.LinkStore.GetLinkByCode(ctx, code)
	close(r.fetched)
	<-r.release
	return link, err
}

func TestResolve_ConcurrentDeleteDoesNotRecacheLink(t *testing.T) {
	ctx := context.Background()
	mem, err := cache.NewMemory(100)
	require.NoError(t, err)
	defer mem.Close()

	store, err := storage.NewLinkStore("", zap.NewNop())
	require.NoError(t, err)
	repo := &blockingRepo{LinkStore: store, fetched: make(chan struct{}), release: make(chan struct{})}
	svc := service.NewShortenerService(repo, service.Options{QR: &stubRenderer{}, Cache: mem}, zap.NewNop(), "http://localhost:8080")

	link, err := svc.CreateLink(ctx, "u1", validRequest())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Resolve(ctx, link.ShortCode)
		done <- err
	}()

	<-repo.fetched
	require.NoError(t, svc.DeleteLink(ctx, "u1", link.ID))
	close(repo.release)
	assert.ErrorIs(t, <-done, model.ErrNotFound)

	_, err = svc.Resolve(ctx, link.ShortCode)
	require.ErrorIs(t, err, model.ErrNotFound, "deleted link resolved from cache")
}

func TestCreateLink_ClearsDeletedMarkerForReusedAlias(t *testing.T) {
	ctx := context.Background()
	mem, err := cache.NewMemory(100)
	require.NoError(t, err)
	defer mem.Close()

	svc, _ := newMemoryService(t, service.Options{Cache: mem})
	req := validRequest()
	req.CustomURL = "godocs"

	first, err := svc.CreateLink(ctx, "u1", req)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteLink(ctx, "u1", first.ID))

	_, err = svc.Resolve(ctx, "godocs")
	require.ErrorIs(t, err, model.ErrNotFound)

	req.LongURL = "https://go.dev/blog/"
	_, err = svc.CreateLink(ctx, "u2", req)
	require.NoError(t, err)

	got, err := svc.Resolve(ctx, "godocs")
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev/blog/", got.OriginalURL)
}

// racingRepo не видит занятые коды, как два параллельных создания одной ссылки.
type racingRepo struct {
	*storage.LinkStore
}

func (racingRepo) CodeExists(context.Context, string) (bool, error) {
	return false, nil
}

func TestCreateLink_LosingInsertKeepsWinnerQR(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLinkStore("", zap.NewNop())
	require.NoError(t, err)
	objects, err := objectstore.NewFileStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	svc := service.NewShortenerService(racingRepo{store}, service.Options{QR: &stubRenderer{}, Objects: objects}, zap.NewNop(), "http://localhost:8080")
	svc.SetCodeGenerator(func() (string, error) { return "same01", nil })

	winner, err := svc.CreateLink(ctx, "u1", validRequest())
	require.NoError(t, err)

	_, err = svc.CreateLink(ctx, "u2", model.CreateLinkRequest{Title: "Other", LongURL: "https://example.com"})
	require.ErrorIs(t, err, model.ErrConflict)

	data, err := objects.Get(ctx, objectstore.NameFromURL(winner.QR))
	require.NoError(t, err)
	assert.Equal(t, []byte("png:https://go.dev/doc/"), data)
}

func TestLinkDetails_TodayAndWeekFollowClock(t *testing.T) {
	ctx := context.Background()
	svc, _ := newMemoryService(t, service.Options{})
	now := time.Date(2026, time.March, 10, 15, 0, 0, 0, time.Local)

	link, err := svc.CreateLink(ctx, "u1", validRequest())
	require.NoError(t, err)

	for _, at := range []time.Time{now.Add(-time.Hour), now.Add(-72 * time.Hour), now.Add(-10 * 24 * time.Hour)} {
		svc.SetClock(func() time.Time { return at })
		_, err := svc.RecordClick(ctx, link.Link, "", "")
		require.NoError(t, err)
	}

	svc.SetClock(func() time.Time { return now })
	details, err := svc.LinkDetails(ctx, "u1", link.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, details.Stats.TotalClicks)
	assert.Equal(t, 1, details.Stats.Today)
	assert.Equal(t, 2, details.Stats.ThisWeek)
	require.Len(t, details.Stats.Daily, 7)
	assert.Equal(t, "2026-03-10", details.Stats.Daily[6].Name)
	assert.Equal(t, 1, details.Stats.Daily[6].Count)
	assert.Equal(t, 1, details.Stats.Daily[3].Count)
}
