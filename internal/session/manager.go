package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/model"
	"github.com/ticketstotripcom-ai/tripflow-backend-sub000/internal/source"
)

var (
	// ErrNoSession means no user is signed in.
	ErrNoSession = errors.New("no active session")

	// ErrSessionExpired means the refresh token died; only a full
	// re-authentication helps.
	ErrSessionExpired = errors.New("session expired")
)

const (
	// accessGrace is how long before access-token expiry a refresh is
	// attempted, so requests never race the expiry instant.
	accessGrace = 5 * time.Minute

	// refreshTimeout bounds a single token refresh round trip.
	refreshTimeout = 30 * time.Second

	// retryInterval is the delay before retrying a scheduled refresh that
	// failed for network reasons.
	retryInterval = time.Minute

	// touchPersistEvery rate-limits keyring writes from activity marks.
	touchPersistEvery = time.Minute
)

// TokenPair is what a TokenSource hands back from a successful refresh.
type TokenPair struct {
	UserID        string
	AccessToken   string
	AccessExpiry  time.Time
	RefreshToken  string
	RefreshExpiry time.Time
}

// TokenSource exchanges a refresh token for a fresh token pair.
type TokenSource interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// EventKind identifies a session lifecycle event.
type EventKind string

const (
	EventRefreshed EventKind = "refreshed"
	EventLoggedOut EventKind = "logged_out"
)

// Event is sent to subscribers when the session changes.
type Event struct {
	Kind   EventKind
	UserID string
	Reason string
}

// Manager owns the token pair: it restores the persisted session at
// startup, refreshes the access token ahead of expiry, and drops the
// session the moment the refresh token is rejected or expires.
type Manager struct {
	store  SessionStore
	source TokenSource
	log    *zap.Logger
	now    func() time.Time

	// refreshMu serializes token refreshes so concurrent callers never
	// burn more than one refresh-token rotation.
	refreshMu sync.Mutex

	mu          sync.Mutex
	sess        model.Session
	timer       *time.Timer
	subs        []chan Event
	closed      bool
	lastPersist time.Time
}

// NewManager creates a session manager and restores any persisted
// session. A stored session whose refresh token already expired is
// discarded on the spot.
func NewManager(store SessionStore, tokens TokenSource, log *zap.Logger) *Manager {
	m := &Manager{
		store:  store,
		source: tokens,
		log:    log,
		now:    time.Now,
	}

	sess, err := store.Load()
	if err != nil {
		log.Warn("loading persisted session failed", zap.Error(err))
		return m
	}
	if sess.IsZero() {
		return m
	}

	if !sess.Valid(m.now()) {
		log.Info("discarding expired persisted session",
			zap.String("user_id", sess.UserID))
		if err := store.Clear(); err != nil {
			log.Warn("clearing expired session failed", zap.Error(err))
		}
		return m
	}

	m.mu.Lock()
	m.sess = sess.ClampInvariant()
	m.scheduleRefreshLocked()
	m.mu.Unlock()

	log.Info("session restored", zap.String("user_id", sess.UserID))
	return m
}

// Session returns a copy of the current session; zero when signed out.
func (m *Manager) Session() model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// UserID returns the signed-in user's ID, or "" when signed out.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.UserID
}

// CheckAuth reports whether a usable session exists right now.
func (m *Manager) CheckAuth() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Valid(m.now())
}

// Touch records user activity on the session. Persisting is rate-limited
// so bursts of activity do not hammer the keyring.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.IsZero() {
		return
	}

	now := m.now()
	m.sess.LastTouched = now
	if now.Sub(m.lastPersist) < touchPersistEvery {
		return
	}
	m.lastPersist = now
	if err := m.store.Save(m.sess); err != nil {
		m.log.Warn("persisting session touch failed", zap.Error(err))
	}
}

// SetSession installs a freshly obtained token pair, e.g. after login.
func (m *Manager) SetSession(pair TokenPair) {
	m.adopt(pair)
	m.log.Info("session established", zap.String("user_id", m.UserID()))
}

// EnsureFresh guarantees the access token is valid for at least the grace
// period, refreshing it when necessary. It returns ErrNoSession when
// signed out and ErrSessionExpired when the refresh token is dead; any
// other error means the refresh could not be attempted and the session
// survives.
func (m *Manager) EnsureFresh(ctx context.Context, reason string) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.mu.Lock()
	sess := m.sess
	now := m.now()
	m.mu.Unlock()

	if sess.IsZero() {
		return ErrNoSession
	}
	if !sess.Valid(now) {
		m.logout("refresh token expired")
		return ErrSessionExpired
	}
	if sess.AccessToken != "" && now.Add(accessGrace).Before(sess.AccessExpiry) {
		return nil
	}

	pair, err := m.source.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if source.IsAuth(err) {
			m.logout("refresh token rejected")
			return fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		// Network trouble: keep the session, the cached access token may
		// still be accepted.
		return fmt.Errorf("refreshing session: %w", err)
	}

	m.adopt(pair)
	m.log.Debug("session refreshed",
		zap.String("reason", reason),
		zap.String("user_id", pair.UserID))
	return nil
}

// AccessToken returns a currently valid access token, refreshing first
// when the cached one is stale. It satisfies the API client's token
// callback.
func (m *Manager) AccessToken() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := m.EnsureFresh(ctx, "request"); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.AccessToken == "" {
		return "", ErrNoSession
	}
	return m.sess.AccessToken, nil
}

// Logout drops the session and clears the persisted copy.
func (m *Manager) Logout() {
	m.logout("user logout")
}

// Subscribe returns a channel carrying session lifecycle events. Slow
// subscribers lose events rather than blocking the manager.
func (m *Manager) Subscribe() <-chan Event {
	ch := make(chan Event, 8)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Close stops the background refresh timer.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// adopt installs a token pair as the current session, persists it, and
// schedules the next refresh.
func (m *Manager) adopt(pair TokenPair) {
	sess := model.Session{
		UserID:        pair.UserID,
		AccessToken:   pair.AccessToken,
		AccessExpiry:  pair.AccessExpiry,
		RefreshToken:  pair.RefreshToken,
		RefreshExpiry: pair.RefreshExpiry,
		LastTouched:   m.now(),
	}

	// Fill blanks from the access token's own claims when the endpoint
	// response carried none.
	if sess.UserID == "" {
		if sub, ok := jwtSubject(pair.AccessToken); ok {
			sess.UserID = sub
		}
	}
	if sess.AccessExpiry.IsZero() {
		if exp, ok := jwtExpiry(pair.AccessToken); ok {
			sess.AccessExpiry = exp
		}
	}

	sess = sess.ClampInvariant()

	m.mu.Lock()
	m.sess = sess
	m.lastPersist = m.now()
	if err := m.store.Save(sess); err != nil {
		m.log.Warn("persisting session failed", zap.Error(err))
	}
	m.scheduleRefreshLocked()
	m.mu.Unlock()

	m.emit(Event{Kind: EventRefreshed, UserID: sess.UserID})
}

// logout clears the session state and notifies subscribers.
func (m *Manager) logout(reason string) {
	m.mu.Lock()
	userID := m.sess.UserID
	wasActive := !m.sess.IsZero()
	m.sess = model.Session{}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	if !wasActive {
		return
	}

	if err := m.store.Clear(); err != nil {
		m.log.Warn("clearing persisted session failed", zap.Error(err))
	}
	m.log.Info("session ended",
		zap.String("user_id", userID),
		zap.String("reason", reason))
	m.emit(Event{Kind: EventLoggedOut, UserID: userID, Reason: reason})
}

// scheduleRefreshLocked arms the refresh timer for just before the access
// token expires. Callers must hold mu.
func (m *Manager) scheduleRefreshLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.closed || m.sess.IsZero() {
		return
	}

	delay := m.sess.AccessExpiry.Sub(m.now()) - accessGrace
	if delay < time.Second {
		delay = time.Second
	}
	m.timer = time.AfterFunc(delay, m.refreshFromTimer)
}

// refreshFromTimer runs a scheduled refresh and arms the follow-up timer.
func (m *Manager) refreshFromTimer() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	err := m.EnsureFresh(ctx, "timer")
	if errors.Is(err, ErrNoSession) || errors.Is(err, ErrSessionExpired) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.sess.IsZero() {
		return
	}
	if err != nil {
		m.log.Warn("scheduled session refresh failed", zap.Error(err))
		m.timer = time.AfterFunc(retryInterval, m.refreshFromTimer)
		return
	}
	m.scheduleRefreshLocked()
}

// emit delivers an event to all subscribers without blocking.
func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// jwtExpiry extracts the exp claim from an access token without verifying
// the signature. Verification is the backend's job; locally the claim
// only schedules the refresh.
func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// jwtSubject extracts the sub claim from an access token without
// verifying the signature.
func jwtSubject(token string) (string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", false
	}
	return sub, true
}
