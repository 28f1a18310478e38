package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-logstore/internal/metrics"
	"go-logstore/internal/utils"

	"go.uber.org/zap"
)

var (
	ErrInvalidPIN  = errors.New("invalid admin PIN")
	ErrAdminLocked = errors.New("admin access is locked")
)

// AdminSubject is the JWT subject of admin sessions.
const AdminSubject = "admin"

// AdminConfig configures the admin unlock flow.
type AdminConfig struct {
	PINHash     string // bcrypt hash of the PIN
	MaxAttempts int
	Lockout     time.Duration
	JWTSecret   string
	JWTExpires  time.Duration
}

// UnlockResult is returned by a successful unlock.
type UnlockResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminStatus describes the current lockout state.
type AdminStatus struct {
	Locked            bool      `json:"locked"`
	FailedAttempts    int       `json:"failedAttempts"`
	RemainingAttempts int       `json:"remainingAttempts"`
	LockedUntil       time.Time `json:"lockedUntil,omitempty"`
}

// AttemptError reports a wrong PIN together with the attempts left.
type AttemptError struct {
	Remaining int
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s: %d attempts remaining", ErrInvalidPIN, e.Remaining)
}

func (e *AttemptError) Unwrap() error { return ErrInvalidPIN }

// AdminService guards the log viewer behind a PIN with a bounded number of
// attempts.
type AdminService interface {
	Unlock(ctx context.Context, pin string) (*UnlockResult, error)
	Status() AdminStatus
}

type adminServiceImpl struct {
	cfg          AdminConfig
	logger       *zap.Logger
	recordLogger *zap.Logger
	now          func() time.Time

	mu          sync.Mutex
	failed      int
	lockedUntil time.Time
}

// NewAdminService creates an AdminService. recordLogger receives the audit
// trail of unlock attempts and may be nil.
func NewAdminService(cfg AdminConfig, logger, recordLogger *zap.Logger) AdminService {
	if recordLogger == nil {
		recordLogger = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &adminServiceImpl{
		cfg:          cfg,
		logger:       logger,
		recordLogger: recordLogger.With(zap.String("tag", "admin")),
		now:          time.Now,
	}
}

// AdminPINHash returns the configured hash, hashing the plain PIN when no
// hash was supplied.
func AdminPINHash(pin, hash string) (string, error) {
	if hash != "" {
		return hash, nil
	}
	if pin == "" {
		return "", errors.New("no admin PIN configured")
	}
	return utils.HashPassword(pin)
}

func (s *adminServiceImpl) Unlock(_ context.Context, pin string) (*UnlockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.lockedUntil.IsZero() {
		if now.Before(s.lockedUntil) {
			s.logger.Warn("Admin unlock rejected: locked", zap.Time("locked_until", s.lockedUntil))
			metrics.AdminUnlockAttempts.WithLabelValues("locked").Inc()
			return nil, ErrAdminLocked
		}
		s.lockedUntil = time.Time{}
		s.failed = 0
	}

	if !utils.CheckPasswordHash(pin, s.cfg.PINHash) {
		s.failed++
		metrics.AdminUnlockAttempts.WithLabelValues("denied").Inc()
		if s.failed >= s.cfg.MaxAttempts {
			s.lockedUntil = now.Add(s.cfg.Lockout)
			s.logger.Warn("Admin access locked after too many failed attempts",
				zap.Int("attempts", s.failed), zap.Time("locked_until", s.lockedUntil))
			s.recordLogger.Warn("admin_panel_locked", zap.Int("attempts", s.failed), zap.Int("maxAttempts", s.cfg.MaxAttempts))
			return nil, ErrAdminLocked
		}
		remaining := s.cfg.MaxAttempts - s.failed
		s.logger.Warn("Admin unlock failed: wrong PIN", zap.Int("attempts", s.failed), zap.Int("remaining", remaining))
		s.recordLogger.Info("access_denied", zap.Int("attempts", s.failed), zap.Int("remaining", remaining))
		return nil, &AttemptError{Remaining: remaining}
	}

	token, expiresAt, err := utils.GenerateToken(AdminSubject, utils.RoleAdmin, s.cfg.JWTSecret, s.cfg.JWTExpires)
	if err != nil {
		s.logger.Error("Failed to generate admin token", zap.Error(err))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	s.failed = 0
	metrics.AdminUnlockAttempts.WithLabelValues("granted").Inc()
	s.logger.Info("Admin access granted")
	s.recordLogger.Info("access_granted")
	return &UnlockResult{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *adminServiceImpl) Status() AdminStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := AdminStatus{FailedAttempts: s.failed}
	if !s.lockedUntil.IsZero() && s.now().Before(s.lockedUntil) {
		st.Locked = true
		st.LockedUntil = s.lockedUntil
		return st
	}
	if !s.lockedUntil.IsZero() {
		// lockout expired; the next attempt starts a fresh round
		st.FailedAttempts = 0
	}
	st.RemainingAttempts = s.cfg.MaxAttempts - st.FailedAttempts
	return st
}
