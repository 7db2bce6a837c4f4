package gate

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"github.com/academyops/backoffice/internal/models"
	"github.com/academyops/backoffice/internal/obs"
	pkgauth "github.com/academyops/backoffice/pkg/auth"
	pkglogger "github.com/academyops/backoffice/pkg/logger"
)

// ValidatorConfig carries the admin secrets and input policy.
type ValidatorConfig struct {
	AdminID           string // compared constant-time against the sanitized user id
	AdminPasswordHash string // bcrypt hash of the admin password
	MaxInputLength    int    // defaults to MaxCredentialLength
}

// CredentialValidator is the credential check behind the admin entry point.
// It fails closed: any ambiguity (ledger unavailable, malformed state) is
// reported as not authenticated, never as access.
type CredentialValidator struct {
	guard  *LockoutGuard
	delay  *TimingDelay
	tokens *TokenManager
	cfg    ValidatorConfig
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
	now    func() time.Time
}

// NewCredentialValidator wires the validator.
func NewCredentialValidator(
	guard *LockoutGuard,
	delay *TimingDelay,
	tokens *TokenManager,
	cfg ValidatorConfig,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *CredentialValidator {
	if cfg.MaxInputLength <= 0 {
		cfg.MaxInputLength = MaxCredentialLength
	}
	return &CredentialValidator{
		guard:  guard,
		delay:  delay,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
		audit:  audit,
		now:    time.Now,
	}
}

// WithClock replaces the wall clock. For tests.
func (v *CredentialValidator) WithClock(now func() time.Time) *CredentialValidator {
	v.now = now
	return v
}

// Validate checks the submitted credentials and issues a session on success.
// When the guard reports blocked it short-circuits before any comparison or
// delay and returns a LockedOutError carrying the countdown.
func (v *CredentialValidator) Validate(ctx context.Context, rawUserID, rawPassword, ipAddress, userAgent string) (*models.Session, error) {
	now := v.now()

	state, err := v.guard.Status(ctx, now)
	if err != nil {
		v.logger.Error("attempt ledger unavailable, failing closed", slog.Any("error", err))
		return nil, models.ErrStoreUnavailable
	}
	if state.Blocked {
		v.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "admin_login_blocked",
			IPAddress:     ipAddress,
			UserAgent:     userAgent,
			FailureReason: "locked_out",
		})
		return nil, &models.LockedOutError{Remaining: state.Remaining(now)}
	}

	userID := SanitizeCredential(rawUserID, v.cfg.MaxInputLength)
	password := SanitizeCredential(rawPassword, v.cfg.MaxInputLength)

	// Same delay on every outcome past the lockout check.
	v.delay.Wait()

	// Evaluate both comparisons before branching so the failure path does not
	// reveal which input was wrong.
	idMatch := subtle.ConstantTimeCompare([]byte(userID), []byte(v.cfg.AdminID)) == 1
	passwordErr := pkgauth.ComparePassword(v.cfg.AdminPasswordHash, password)

	if !idMatch || passwordErr != nil {
		if err := v.guard.RecordFailure(ctx, v.now(), ipAddress, userAgent); err != nil {
			return nil, models.ErrStoreUnavailable
		}
		obs.LoginFailure()
		if blocked, err := v.guard.IsBlocked(ctx, v.now()); err == nil && blocked {
			obs.Lockout()
			v.logger.Warn("admin login gate locked",
				slog.Int("max_attempts", v.guard.policy.MaxAttempts),
				slog.Duration("block_duration", v.guard.policy.BlockDuration))
		}
		v.logger.Info("admin login failed: invalid credentials")
		v.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "admin_login_failed",
			IPAddress:     ipAddress,
			UserAgent:     userAgent,
			FailureReason: "invalid_credentials",
		})
		return nil, models.ErrInvalidCredentials
	}

	if err := v.guard.ClearOnSuccess(ctx); err != nil {
		v.logger.Warn("failed to clear attempt ledger after login", slog.Any("error", err))
	}

	issuedAt := v.now()
	token, claims, err := v.tokens.Issue(v.cfg.AdminID, issuedAt)
	if err != nil {
		v.logger.Error("failed to issue session token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	v.logger.Info("admin logged in", slog.String("jti", claims.ID))
	v.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "admin_login_success",
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   true,
	})

	return &models.Session{Token: token, IssuedAt: issuedAt}, nil
}
