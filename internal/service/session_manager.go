package service

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/carevault/access-server-go/internal/audit"
	"github.com/carevault/access-server-go/internal/config"
	apperrors "github.com/carevault/access-server-go/internal/errors"
	"github.com/carevault/access-server-go/internal/model"
	"github.com/carevault/access-server-go/internal/repository"
)

// sessionActivity is the in-memory cache entry for idle tracking. It is an
// optimization only: the persisted row decides validity.
type sessionActivity struct {
	SessionID    string
	PatientID    string
	DoctorID     string
	ExpiresAt    time.Time
	LastActivity time.Time
}

// SessionManager creates, validates and revokes doctor sessions. One instance
// exists per process, constructed in main and injected; it exclusively owns
// the activity cache.
type SessionManager struct {
	db          TxRunner
	sessions    repository.DoctorSessionRepository
	aud         *audit.Writer
	cache       *ttlcache.Cache[string, sessionActivity]
	ttl         time.Duration
	limit       int
	idleTimeout time.Duration
	now         func() time.Time
}

func NewSessionManager(
	db TxRunner,
	sessions repository.DoctorSessionRepository,
	aud *audit.Writer,
	ttl time.Duration,
	limit int,
	idleTimeout time.Duration,
) *SessionManager {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, sessionActivity](),
	)
	go cache.Start()

	return &SessionManager{
		db:          db,
		sessions:    sessions,
		aud:         aud,
		cache:       cache,
		ttl:         ttl,
		limit:       limit,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Close stops the cache's expiry goroutine.
func (m *SessionManager) Close() {
	m.cache.Stop()
}

// Create grants a doctor a time-boxed session for one patient. Creation is
// rejected, not queued, once the doctor holds the maximum number of live
// sessions. The count and the insert run in one transaction under a per-doctor
// advisory lock, so two racing grants cannot both slip under the cap. The
// cache entry is populated only after the row is durably persisted.
func (m *SessionManager) Create(ctx context.Context, patientID, doctorID string, tokenID *string) (*model.DoctorSession, error) {
	now := m.now()
	var session *model.DoctorSession
	err := m.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := m.sessions.WithTx(tx)
		if err := repo.LockDoctor(ctx, doctorID); err != nil {
			return err
		}
		count, err := repo.CountActiveByDoctor(ctx, doctorID, now)
		if err != nil {
			return err
		}
		if count >= m.limit {
			return apperrors.SessionLimitReached(m.limit)
		}
		session, err = repo.Create(ctx, model.CreateDoctorSessionParams{
			PatientID: patientID,
			DoctorID:  doctorID,
			TokenID:   tokenID,
			GrantedAt: now,
			ExpiresAt: now.Add(m.ttl),
		})
		return err
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Database(err)
	}

	m.cacheSet(sessionActivity{
		SessionID:    session.ID,
		PatientID:    session.PatientID,
		DoctorID:     session.DoctorID,
		ExpiresAt:    session.ExpiresAt,
		LastActivity: now,
	})

	m.aud.Record(ctx, audit.Entry{
		Action:    audit.ActionSessionCreated,
		PatientID: patientID,
		DoctorID:  doctorID,
		Origin:    model.OriginSystem,
		Details: map[string]any{
			"sessionId": session.ID,
			"expiresAt": session.ExpiresAt.Format(time.RFC3339),
		},
	})

	return session, nil
}

// Validate is the only gate for doctor reads. The persisted record is
// authoritative; a hard-expired session is revoked on the spot and the call
// starts failing silently. A live session only has its idle clock refreshed:
// use never extends the hard expiry.
func (m *SessionManager) Validate(ctx context.Context, sessionID string) (bool, error) {
	session, err := m.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return false, apperrors.Database(err)
	}
	if session == nil || !session.IsActive {
		return false, nil
	}

	if session.IsExpired(m.now()) {
		if err := m.revoke(ctx, sessionID, session.PatientID, "hard_expiry"); err != nil {
			return false, apperrors.Database(err)
		}
		return false, nil
	}

	m.touch(session)
	return true, nil
}

// Revoke is idempotent: revoking an already-revoked session is a no-op at the
// store and only re-emits the audit entry. A failed store write is returned to
// the caller, which can retry; the session is still live until the row flips.
func (m *SessionManager) Revoke(ctx context.Context, sessionID string) error {
	patientID := audit.UnknownPatientID
	if item := m.cache.Get(sessionID); item != nil {
		patientID = item.Value().PatientID
	}
	if err := m.revoke(ctx, sessionID, patientID, "explicit"); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

// SweepIdle revokes cached sessions idle past the timeout. It is a secondary
// safety net under the hard expiry; a doctor actively validating keeps the
// idle clock fresh but never outlives ExpiresAt. Failures are isolated per
// entry.
func (m *SessionManager) SweepIdle(ctx context.Context) int {
	cutoff := m.now().Add(-m.idleTimeout)

	stale := make([]sessionActivity, 0)
	for _, item := range m.cache.Items() {
		if entry := item.Value(); entry.LastActivity.Before(cutoff) {
			stale = append(stale, entry)
		}
	}

	revoked := 0
	for _, entry := range stale {
		if err := m.revoke(ctx, entry.SessionID, entry.PatientID, "idle_timeout"); err != nil {
			log.Error().Err(err).Str("sessionId", entry.SessionID).Msg("deactivate idle session")
			continue
		}
		revoked++
	}
	return revoked
}

func (m *SessionManager) revoke(ctx context.Context, sessionID, patientID, cause string) error {
	if err := m.sessions.Deactivate(ctx, sessionID); err != nil {
		return err
	}
	m.cache.Delete(sessionID)

	m.aud.Record(ctx, audit.Entry{
		Action:    audit.ActionSessionRevoked,
		PatientID: patientID,
		Origin:    model.OriginSystem,
		Details: map[string]any{
			"sessionId": sessionID,
			"cause":     cause,
		},
	})
	return nil
}

// touch refreshes the idle clock, throttled so a doctor paging through a
// record does not hammer the cache. Entries lost to a restart are repopulated
// from the persisted row.
func (m *SessionManager) touch(session *model.DoctorSession) {
	now := m.now()
	if item := m.cache.Get(session.ID); item != nil {
		if now.Sub(item.Value().LastActivity) < config.ActivityTouchThrottle {
			return
		}
	}
	m.cacheSet(sessionActivity{
		SessionID:    session.ID,
		PatientID:    session.PatientID,
		DoctorID:     session.DoctorID,
		ExpiresAt:    session.ExpiresAt,
		LastActivity: now,
	})
}

func (m *SessionManager) cacheSet(entry sessionActivity) {
	remaining := entry.ExpiresAt.Sub(m.now())
	if remaining <= 0 {
		return
	}
	m.cache.Set(entry.SessionID, entry, remaining)
}
