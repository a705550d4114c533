package sync

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/notify"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/outbox"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/session"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/source"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/store"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/tests/testutil"
)

// fakeRemote serves a scripted lead book and records every remote call.
type fakeRemote struct {
	mu         gosync.Mutex
	leads      []model.Lead
	users      []model.User
	broadcasts []model.Broadcast
	fetchErr   error
	onFetch    func()
	calls      []string
}

func (f *fakeRemote) setLeads(leads ...model.Lead) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = leads
}

func (f *fakeRemote) setBroadcasts(bcs ...model.Broadcast) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = bcs
}

func (f *fakeRemote) setFetchErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

func (f *fakeRemote) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) FetchAll(ctx context.Context, forceRefresh bool) (model.Snapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "fetch")
	err := f.fetchErr
	leads := append([]model.Lead(nil), f.leads...)
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.Snapshot{Leads: leads, CapturedAt: time.Now()}, nil
}

func (f *fakeRemote) FetchUsers(ctx context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "users")
	return append([]model.User(nil), f.users...), nil
}

func (f *fakeRemote) FetchBroadcasts(ctx context.Context) ([]model.Broadcast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "broadcasts")
	return append([]model.Broadcast(nil), f.broadcasts...), nil
}

func (f *fakeRemote) Append(ctx context.Context, lead model.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "append "+lead.Identity().String())
	return nil
}

func (f *fakeRemote) UpdateByIdentity(ctx context.Context, key model.LeadKey, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update "+key.String())
	return nil
}

type memSessionStore struct {
	mu   gosync.Mutex
	sess model.Session
}

func (s *memSessionStore) Load() (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess, nil
}

func (s *memSessionStore) Save(sess model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	return nil
}

func (s *memSessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = model.Session{}
	return nil
}

// grantTokens always hands out a fresh token pair.
type grantTokens struct{}

func (grantTokens) Refresh(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	now := time.Now()
	return session.TokenPair{
		UserID:        "priya",
		AccessToken:   "access-2",
		AccessExpiry:  now.Add(time.Hour),
		RefreshToken:  refreshToken,
		RefreshExpiry: now.Add(24 * time.Hour),
	}, nil
}

type recordSink struct {
	mu        gosync.Mutex
	presented []model.Notification
	badge     int
}

func (s *recordSink) Present(n model.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presented = append(s.presented, n)
}

func (s *recordSink) SetBadgeCount(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badge = count
}

func (s *recordSink) titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.presented))
	for i, n := range s.presented {
		out[i] = n.Title
	}
	return out
}

func (s *recordSink) badgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.badge
}

type engineFixture struct {
	o      *Orchestrator
	remote *fakeRemote
	store  *store.SQLiteStore
	sink   *recordSink
}

func newEngine(t *testing.T, sess model.Session) *engineFixture {
	t.Helper()

	st := testutil.NewTestStore(t)
	remote := &fakeRemote{}
	sink := &recordSink{}

	sessions := session.NewManager(&memSessionStore{sess: sess}, grantTokens{}, zap.NewNop())
	t.Cleanup(sessions.Close)

	dispatch := notify.NewDispatcher(st, sink, zap.NewNop())
	ob := outbox.New(st, remote, "book1", zap.NewNop())

	return &engineFixture{
		o:      New(st, remote, sessions, dispatch, ob, time.Minute, zap.NewNop()),
		remote: remote,
		store:  st,
		sink:   sink,
	}
}

func signedIn() model.Session {
	now := time.Now()
	return model.Session{
		UserID:        "priya",
		AccessToken:   "access-1",
		AccessExpiry:  now.Add(time.Hour),
		RefreshToken:  "refresh-1",
		RefreshExpiry: now.Add(24 * time.Hour),
		LastTouched:   now,
	}
}

// stampAgo renders a provider-style creation timestamp the given
// duration in the past.
func stampAgo(d time.Duration) string {
	return time.Now().Add(-d).Format("2006-01-02 15:04")
}

func TestRunOnce_FirstSyncCapturesBook(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())
	ctx := context.Background()

	fix.remote.setLeads(
		model.Lead{CreatedAt: stampAgo(30 * time.Minute), Name: "Asha Rao", Owner: "Priya", Status: "New", Destination: "Bali"},
		model.Lead{CreatedAt: stampAgo(40 * time.Minute), Name: "Vikram Shah", Owner: "Dev", Status: "New"},
	)

	report, err := fix.o.RunOnce(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Leads)
	assert.Zero(t, report.NewLeads, "the first snapshot is a baseline, not news")
	assert.Zero(t, report.Delivered)
	assert.Equal(t, StateIdle, fix.o.Status().State)

	snap, err := fix.store.CurrentSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Leads, 2)

	last, err := fix.store.LastSync(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), last, 5*time.Second)

	assert.Empty(t, fix.sink.titles())
}

func TestRunOnce_NotifiesNewLeadOnNextCycle(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())
	ctx := context.Background()

	first := model.Lead{CreatedAt: stampAgo(45 * time.Minute), Name: "Asha Rao", Owner: "Priya", Status: "New"}
	fix.remote.setLeads(first)
	_, err := fix.o.RunOnce(ctx, false)
	require.NoError(t, err)

	// A fresh walk-in appears between cycles, still unassigned.
	walkIn := model.Lead{CreatedAt: stampAgo(20 * time.Minute), Name: "Dev Patel", Destination: "Goa", Pax: 2}
	fix.remote.setLeads(first, walkIn)

	report, err := fix.o.RunOnce(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 1, report.NewLeads)
	assert.Equal(t, 1, report.Delivered)

	titles := fix.sink.titles()
	require.Len(t, titles, 1)
	assert.Equal(t, "New lead: Dev Patel", titles[0])
	assert.Equal(t, 1, fix.sink.badgeCount())

	inbox, err := fix.store.Inbox(ctx, "priya", 10)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, model.CategoryNewLead, inbox[0].Category)
	assert.Equal(t, "Goa, 2 pax", inbox[0].Body)
	require.NotNil(t, inbox[0].DeepLink)
	assert.Equal(t, "dev patel", inbox[0].DeepLink.Lead.NameFold)
}

func TestRunOnce_NoSessionIsUnauthenticated(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, model.Session{})

	_, err := fix.o.RunOnce(context.Background(), false)
	require.ErrorIs(t, err, session.ErrNoSession)

	assert.Equal(t, StateUnauthenticated, fix.o.Status().State)
	assert.Empty(t, fix.remote.seen(), "no remote call without a session")
}

func TestRunOnce_NetworkFailureGoesOffline(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())
	ctx := context.Background()

	fix.remote.setLeads(model.Lead{CreatedAt: stampAgo(time.Hour), Name: "Asha Rao", Owner: "Priya", Status: "New"})
	_, err := fix.o.RunOnce(ctx, false)
	require.NoError(t, err)

	fix.remote.setFetchErr(&source.Error{Kind: source.KindNetwork, Op: "fetch leads", Message: "connection reset"})

	_, err = fix.o.RunOnce(ctx, false)
	require.Error(t, err)
	assert.Equal(t, StateOffline, fix.o.Status().State)

	// The cached book keeps serving readers.
	snap, err := fix.store.CurrentSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Leads, 1)

	select {
	case ev := <-fix.o.Events():
		assert.Equal(t, EventCacheReady, ev.Kind)
	default:
		t.Fatal("expected a cache-ready event before the fetch")
	}
}

func TestRunOnce_AuthFailureRequiresLogin(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())

	fix.remote.setFetchErr(&source.Error{
		Kind:    source.KindAuth,
		Op:      "fetch leads",
		Message: "token expired",
	})

	_, err := fix.o.RunOnce(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, StateUnauthenticated, fix.o.Status().State)
}

func TestRunOnce_ReplaysQueuedWritesBeforeFetching(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())
	ctx := context.Background()

	asha := model.Lead{CreatedAt: "2026-08-01 10:00", Name: "Asha Rao", Owner: "Priya", Status: "New"}
	fix.remote.setLeads(asha)

	// A write queued while the app was offline.
	_, err := fix.store.EnqueueMutation(ctx, model.QueuedMutation{
		Op:     model.OpUpdate,
		Key:    asha.Identity(),
		Fields: map[string]string{"status": "Booked"},
	})
	require.NoError(t, err)

	report, err := fix.o.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Replayed)

	seen := fix.remote.seen()
	require.GreaterOrEqual(t, len(seen), 2)
	assert.Equal(t, "update 2026-08-01 10:00|asha rao", seen[0], "queued writes replay before the fetch")
	assert.Equal(t, "fetch", seen[1])

	pending, err := fix.store.Mutations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRunOnce_BroadcastsDeliverOnce(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())
	ctx := context.Background()

	fix.remote.setBroadcasts(model.Broadcast{
		ID:       "b7",
		Audience: "all",
		Message:  "Monsoon fares are out.",
		PostedAt: time.Now().Add(-time.Hour),
	})

	report, err := fix.o.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Broadcasts)
	assert.Equal(t, 1, report.Delivered)

	titles := fix.sink.titles()
	require.Len(t, titles, 1)
	assert.Equal(t, "Team announcement", titles[0])

	// The same broadcast row comes back on every fetch; it must not
	// fire again.
	report, err = fix.o.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, report.Delivered)
	assert.Equal(t, 1, report.Dropped)
	assert.Len(t, fix.sink.titles(), 1)
}

func TestRunOnce_AlertsOwnerAboutStalledHotLead(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())
	ctx := context.Background()

	fix.remote.setLeads(model.Lead{
		CreatedAt:   stampAgo(8 * time.Hour),
		Name:        "Meera Nair",
		Owner:       "Priya",
		Status:      "Hot",
		Destination: "Kerala",
	})

	report, err := fix.o.RunOnce(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ActionAlerts)
	assert.Equal(t, 1, report.Delivered)

	titles := fix.sink.titles()
	require.Len(t, titles, 1)
	assert.Equal(t, "Call now: Meera Nair", titles[0])
}

func TestRunOnce_CancellationAbortsBeforeCommit(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fix.remote.setLeads(model.Lead{CreatedAt: stampAgo(time.Hour), Name: "Asha Rao", Owner: "Priya", Status: "New"})
	fix.remote.onFetch = cancel

	_, err := fix.o.RunOnce(ctx, false)
	require.Error(t, err)

	snap, err := fix.store.CurrentSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty(), "a canceled cycle must not commit its snapshot")
}

func TestSync_BeforeRunIsSafe(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())

	fix.o.Sync(true)
	time.Sleep(10 * time.Millisecond)

	assert.Empty(t, fix.remote.seen())
}

func TestRun_FirstCycleFiresImmediately(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())
	fix.remote.setLeads(model.Lead{CreatedAt: stampAgo(time.Hour), Name: "Asha Rao", Owner: "Priya", Status: "New"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		fix.o.Run(ctx)
		close(done)
	}()

	var got Event
	select {
	case got = <-fix.o.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("no sync event from the initial cycle")
	}
	assert.Equal(t, EventSynced, got.Kind)
	require.NotNil(t, got.Report)
	assert.Equal(t, 1, got.Report.Leads)
	assert.Equal(t, StateIdle, got.Status.State)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop on cancellation")
	}
}

func TestStop_EndsRunLoop(t *testing.T) {
	t.Parallel()

	fix := newEngine(t, signedIn())
	fix.remote.setLeads(model.Lead{CreatedAt: stampAgo(time.Hour), Name: "Asha Rao", Owner: "Priya", Status: "New"})

	done := make(chan struct{})
	go func() {
		fix.o.Run(context.Background())
		close(done)
	}()

	select {
	case ev := <-fix.o.Events():
		assert.Equal(t, EventSynced, ev.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("no sync event from the initial cycle")
	}

	fix.o.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop")
	}

	fix.o.Stop()
}
