package sessionauth

import (
	"context"
	"errors"
	"time"

	"github.com/MForofontov/sessionauth/internal/flows"
	"github.com/MForofontov/sessionauth/jwt"
	"github.com/MForofontov/sessionauth/revocation"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	store  revocation.Store

	verifier  CredentialVerifier
	logger    *zap.Logger
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the engine configuration. Build validates it.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRevocationStore sets the blacklist backend. Without one, Build falls
// back to an in-process MemoryStore.
func (b *Builder) WithRevocationStore(store revocation.Store) *Builder {
	b.store = store
	return b
}

// WithCredentialVerifier enables Engine.Login.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithLogger sets the engine logger. Without one the engine logs nothing.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink routes audit events to sink when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source used for minting, verification and
// audit timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the refresh latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sessionauth")

	store := b.store
	if store == nil {
		logger.Warn("no revocation store configured; using in-process memory store")
		store = revocation.NewMemoryStore()
	}

	idGen, err := jwt.IDGeneratorFor(cfg.JWT.TokenIDFormat, cfg.JWT.SnowflakeNode, b.clock)
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
		IDGenerator:   idGen,
		Now:           b.clock,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		jwtManager: jm,
		store:      store,
		verifier:   b.verifier,
		logger:     logger,
		metrics:    NewMetrics(cfg.Metrics),
		clock:      b.clock,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)

	verifyRefresh := func(token string) (*jwt.Claims, error) {
		return jm.VerifyKind(token, jwt.KindRefresh)
	}
	issue := flows.IssueDeps{
		MintAccess:  jm.MintAccess,
		MintRefresh: jm.MintRefresh,
	}

	deps := flows.Deps{
		Issue: issue,
		Login: flows.LoginDeps{
			VerifyCredentials:  engine.verifyCredentials,
			InvalidCredentials: ErrInvalidCredentials,
			Issue:              issue,
		},
		Refresh: flows.RefreshDeps{
			VerifyRefresh:          verifyRefresh,
			MintAccess:             jm.MintAccess,
			MintRefresh:            jm.MintRefresh,
			Store:                  store,
			AcceptUntil:            jm.AcceptUntil,
			RotateRefreshTokens:    cfg.Refresh.RotateRefreshTokens,
			BlacklistAfterRotation: cfg.Refresh.BlacklistAfterRotation,
		},
		Logout: flows.LogoutDeps{
			VerifyRefresh: verifyRefresh,
			Store:         store,
			AcceptUntil:   jm.AcceptUntil,
		},
	}
	engine.flow = flows.New(deps)

	b.built = true

	return engine, nil
}

func (e *Engine) verifyCredentials(ctx context.Context, username, password string) (string, map[string]string, error) {
	id, err := e.verifier.VerifyCredentials(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	return id.Subject, id.Attributes, nil
}
