package sessionauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MForofontov/sessionauth/internal/flows"
	"github.com/MForofontov/sessionauth/jwt"
	"github.com/MForofontov/sessionauth/revocation"
	"go.uber.org/zap"
)

// Engine issues, refreshes and revokes cookie-delivered session tokens.
//
// Engine is safe for concurrent use once built. The revocation store is the
// only shared mutable resource.
type Engine struct {
	config     Config
	jwtManager *jwt.Manager
	store      revocation.Store
	verifier   CredentialVerifier
	logger     *zap.Logger
	audit      *auditDispatcher
	metrics    *Metrics
	clock      func() time.Time
	flow       flows.Service
}

// Close flushes pending audit events. It does not close the revocation store.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of the counters and the
// refresh latency histogram. It is empty when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL and RefreshTTL report the configured token lifetimes.
// AccessTTL and RefreshTTL report the configured token lifetimes.
func (e *Engine) AccessTTL() time.Duration  { return e.config.JWT.AccessTTL }
func (e *Engine) RefreshTTL() time.Duration { return e.config.JWT.RefreshTTL }

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Issue mints a fresh access/refresh pair for subject. It never consults the
// revocation store.
func (e *Engine) Issue(ctx context.Context, subject string) (TokenPair, error) {
	if e == nil || !e.flow.Initialized() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.flow.Issue(subject)
	switch res.Failure {
	case flows.IssueFailureNone:
	case flows.IssueFailureSubject:
		return TokenPair{}, ErrInvalidCredential
	default:
		e.logger.Error("token issue failed",
			zap.String("subject", subject),
			zap.String("stage", issueStage(res.Failure)),
			zap.Error(res.Err),
		)
		return TokenPair{}, fmt.Errorf("%w: %v", ErrInternal, res.Err)
	}

	pair := TokenPair{
		Access:  issuedFromFlow(res.Access),
		Refresh: issuedFromFlow(res.Refresh),
	}
	e.metricInc(MetricIssue)
	e.emitAudit(ctx, auditEventTokenIssued, true, subject, pair.Refresh.ID, nil, nil)
	return pair, nil
}

// Login verifies username/password with the configured CredentialVerifier and
// issues a pair for the resolved subject.
func (e *Engine) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if e == nil || e.verifier == nil || !e.flow.Initialized() {
		return LoginResult{}, ErrEngineNotReady
	}

	res := e.flow.Login(ctx, username, password)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.logger.Info("login rejected", zap.String("username", username))
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"username": username,
			}
		})
		return LoginResult{}, ErrInvalidCredentials
	default:
		e.metricInc(MetricLoginFailure)
		e.logger.Error("login failed",
			zap.String("username", username),
			zap.String("subject", res.Subject),
			zap.String("stage", loginStage(res.Failure)),
			zap.Error(res.Err),
		)
		err := fmt.Errorf("%w: %v", ErrInternal, res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, false, res.Subject, "", err, func() map[string]string {
			return map[string]string{
				"stage": loginStage(res.Failure),
			}
		})
		return LoginResult{}, err
	}

	out := LoginResult{
		Identity: Identity{Subject: res.Subject, Attributes: res.Attributes},
		Tokens: TokenPair{
			Access:  issuedFromFlow(res.Access),
			Refresh: issuedFromFlow(res.Refresh),
		},
	}
	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricIssue)
	e.emitAudit(ctx, auditEventLoginSuccess, true, res.Subject, out.Tokens.Refresh.ID, nil, nil)
	return out, nil
}

// Refresh exchanges a refresh token for a new access token and, when rotation
// is enabled, a successor refresh token.
//
// Errors: ErrMissingCredential, ErrInvalidCredential, ErrExpiredCredential,
// ErrRevokedCredential, or an error wrapping ErrInternal. Under rotation with
// blacklisting, at most one call per refresh token succeeds; every other
// concurrent or later call gets ErrRevokedCredential.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	if e == nil || !e.flow.Initialized() {
		return RefreshResult{}, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricRefreshLatency, time.Since(start))
	}()

	res := e.flow.Refresh(ctx, refreshToken)
	if err := e.refreshFailure(ctx, res); err != nil {
		return RefreshResult{}, err
	}

	out := RefreshResult{
		Subject: res.Subject,
		Access:  issuedFromFlow(res.Access),
		Rotated: res.Rotated,
	}
	if res.Refresh != nil {
		next := issuedFromFlow(*res.Refresh)
		out.Refresh = &next
	}

	e.metricInc(MetricRefreshSuccess)
	if res.Rotated {
		e.metricInc(MetricRefreshRotated)
		if e.config.Refresh.BlacklistAfterRotation {
			e.metricInc(MetricRevocationRecorded)
		}
	}
	e.emitAudit(ctx, auditEventRefreshSuccess, true, res.Subject, res.TokenID, nil, func() map[string]string {
		md := map[string]string{
			"rotated": fmt.Sprintf("%t", res.Rotated),
		}
		if out.Refresh != nil {
			md["next_token_id"] = out.Refresh.ID
		}
		return md
	})
	return out, nil
}

func (e *Engine) refreshFailure(ctx context.Context, res flows.RefreshResult) error {
	reason := refreshReason(res.Failure)

	switch res.Failure {
	case flows.RefreshFailureNone:
		return nil

	case flows.RefreshFailureMissing:
		e.metricInc(MetricRefreshMissing)
		e.logger.Info("refresh rejected", zap.String("reason", reason))
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrMissingCredential, nil)
		return ErrMissingCredential

	case flows.RefreshFailureExpired:
		e.metricInc(MetricRefreshExpired)
		e.logger.Info("refresh rejected", zap.String("reason", reason))
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrExpiredCredential, nil)
		return ErrExpiredCredential

	case flows.RefreshFailureMalformed,
		flows.RefreshFailureSignature,
		flows.RefreshFailureClaims,
		flows.RefreshFailureWrongKind:
		e.metricInc(MetricRefreshInvalid)
		e.logger.Info("refresh rejected", zap.String("reason", reason), zap.Error(res.Err))
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrInvalidCredential, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return ErrInvalidCredential

	case flows.RefreshFailureRevoked, flows.RefreshFailureReuseRace:
		e.metricInc(MetricRefreshRevoked)
		if res.Failure == flows.RefreshFailureReuseRace {
			e.metricInc(MetricRefreshReuseRace)
		}
		e.logger.Warn("revoked refresh token presented",
			zap.String("subject", res.Subject),
			zap.String("jti", res.TokenID),
			zap.String("reason", reason),
		)
		e.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.Subject, res.TokenID, ErrRevokedCredential, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return ErrRevokedCredential

	default:
		e.metricInc(MetricRefreshInternal)
		e.logger.Error("refresh failed",
			zap.String("subject", res.Subject),
			zap.String("jti", res.TokenID),
			zap.String("stage", reason),
			zap.Error(res.Err),
		)
		err := fmt.Errorf("%w: %v", ErrInternal, res.Err)
		e.emitAudit(ctx, auditEventRefreshFailure, false, res.Subject, res.TokenID, err, func() map[string]string {
			return map[string]string{
				"stage": reason,
			}
		})
		return err
	}
}

// Revoke blacklists the jti of a refresh token until its natural expiry.
// Revoking an already revoked token succeeds.
func (e *Engine) Revoke(ctx context.Context, refreshToken string) error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}

	res := e.flow.Logout(ctx, refreshToken)
	var err error
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricLogout)
		e.metricInc(MetricRevocationRecorded)
		e.emitAudit(ctx, auditEventLogout, true, res.Subject, res.TokenID, nil, nil)
		return nil
	case flows.RefreshFailureMissing:
		err = ErrMissingCredential
	case flows.RefreshFailureExpired:
		err = ErrExpiredCredential
	case flows.RefreshFailureRecord:
		e.logger.Error("revoke failed",
			zap.String("subject", res.Subject),
			zap.String("jti", res.TokenID),
			zap.Error(res.Err),
		)
		err = fmt.Errorf("%w: %v", ErrInternal, res.Err)
	default:
		err = ErrInvalidCredential
	}

	e.emitAudit(ctx, auditEventLogoutFailure, false, res.Subject, res.TokenID, err, nil)
	return err
}

// Authenticate verifies an access token. The revocation store is never
// consulted: access tokens are short-lived and are not blacklisted.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*jwt.Claims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}
	if accessToken == "" {
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrMissingCredential
	}

	claims, err := e.jwtManager.VerifyKind(accessToken, jwt.KindAccess)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		if errors.Is(err, jwt.ErrExpired) {
			return nil, ErrExpiredCredential
		}
		e.logger.Debug("access token rejected", zap.Error(err))
		return nil, ErrInvalidCredential
	}

	e.metricInc(MetricAuthenticateSuccess)
	return claims, nil
}

func refreshReason(kind flows.RefreshFailureKind) string {
	switch kind {
	case flows.RefreshFailureMissing:
		return "missing"
	case flows.RefreshFailureMalformed:
		return "malformed"
	case flows.RefreshFailureSignature:
		return "signature"
	case flows.RefreshFailureClaims:
		return "claims"
	case flows.RefreshFailureWrongKind:
		return "wrong_kind"
	case flows.RefreshFailureExpired:
		return "expired"
	case flows.RefreshFailureRevoked:
		return "blacklisted"
	case flows.RefreshFailureReuseRace:
		return "rotation_race"
	case flows.RefreshFailureStoreCheck:
		return "store_check"
	case flows.RefreshFailureIssueAccess:
		return "mint_access"
	case flows.RefreshFailureIssueRefresh:
		return "mint_refresh"
	case flows.RefreshFailureRecord:
		return "store_record"
	default:
		return "unknown"
	}
}

func issueStage(kind flows.IssueFailureKind) string {
	switch kind {
	case flows.IssueFailureAccess:
		return "mint_access"
	case flows.IssueFailureRefresh:
		return "mint_refresh"
	default:
		return "unknown"
	}
}

func loginStage(kind flows.LoginFailureKind) string {
	switch kind {
	case flows.LoginFailureVerifier:
		return "verifier"
	case flows.LoginFailureIssueAccess:
		return "mint_access"
	case flows.LoginFailureIssueRefresh:
		return "mint_refresh"
	default:
		return "unknown"
	}
}
