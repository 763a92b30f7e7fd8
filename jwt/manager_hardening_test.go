package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("secret-secret-secret-secret-secret")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func newHSManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestMintVerifyLifetimeScenario(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newHSManager(t, clock)

	access, accessClaims, err := m.MintAccess("user-42")
	if err != nil {
		t.Fatalf("mint access: %v", err)
	}
	refresh, refreshClaims, err := m.MintRefresh("user-42")
	if err != nil {
		t.Fatalf("mint refresh: %v", err)
	}
	if accessClaims.ID == refreshClaims.ID {
		t.Fatal("expected distinct jti per token")
	}

	for _, tok := range []string{access, refresh} {
		claims, err := m.Verify(tok)
		if err != nil {
			t.Fatalf("verify fresh token: %v", err)
		}
		if claims.Subject != "user-42" {
			t.Fatalf("expected sub user-42, got %q", claims.Subject)
		}
	}

	clock.now = clock.now.Add(30 * time.Minute)
	if _, err := m.VerifyKind(access, KindAccess); err != nil {
		t.Fatalf("expected access valid at t+30m: %v", err)
	}

	clock.now = clock.now.Add(90 * time.Minute)
	if _, err := m.Verify(access); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired at t+2h, got %v", err)
	}
	if _, err := m.VerifyKind(refresh, KindRefresh); err != nil {
		t.Fatalf("expected refresh still valid at t+2h: %v", err)
	}
}

func TestVerifyClassifiesFailures(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newHSManager(t, clock)

	token, _, err := m.MintRefresh("user-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	other, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("another-secret-another-secret-xx"),
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	foreign, _, err := other.MintRefresh("user-1")
	if err != nil {
		t.Fatalf("mint foreign: %v", err)
	}

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMalformed},
		{name: "garbage", token: "not.a.jwt", want: ErrMalformed},
		{name: "two segments", token: parts[0] + "." + parts[1], want: ErrMalformed},
		{name: "tampered signature", token: tampered, want: ErrInvalidSignature},
		{name: "foreign key", token: foreign, want: ErrInvalidSignature},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.Verify(tc.token); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestVerifyExpiredNeverReportedAsInvalid(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newHSManager(t, clock)

	token, _, err := m.Mint("user-1", KindRefresh, time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	clock.now = clock.now.Add(48 * time.Hour)

	_, err = m.VerifyKind(token, KindRefresh)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrMalformed) {
		t.Fatalf("expired token misclassified: %v", err)
	}
}

func TestVerifyKindRejectsAccessAsRefresh(t *testing.T) {
	m := newHSManager(t, &fakeClock{now: time.Now()})

	access, _, err := m.MintAccess("user-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := m.VerifyKind(access, KindRefresh); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		ID:        "j1",
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected wrong algorithm to be rejected as invalid signature, got %v", err)
	}
	if _, _, err := m.MintAccess("u"); err == nil {
		t.Fatal("expected verify-only manager to refuse minting")
	}
}

func TestVerifyIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "sessionauth",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, _, err := m.MintAccess("u")
	if err != nil {
		t.Fatalf("mint access: %v", err)
	}
	if _, err := m.Verify(access); err != nil {
		t.Fatalf("expected valid token to verify: %v", err)
	}

	sign := func(rc gjwt.RegisteredClaims) string {
		rc.Subject = "u"
		rc.ID = "jti-1"
		tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, Claims{Kind: KindAccess, RegisteredClaims: rc})
		s, err := tok.SignedString(priv)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}

	badIssuer := sign(gjwt.RegisteredClaims{
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	})
	if _, err := m.Verify(badIssuer); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected wrong issuer to fail with ErrInvalidClaims, got %v", err)
	}

	badAudience := sign(gjwt.RegisteredClaims{
		Issuer:    "sessionauth",
		Audience:  gjwt.ClaimStrings{"other-api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	})
	if _, err := m.Verify(badAudience); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected wrong audience to fail with ErrInvalidClaims, got %v", err)
	}

	withinLeeway := sign(gjwt.RegisteredClaims{
		Issuer:    "sessionauth",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	if _, err := m.Verify(withinLeeway); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := sign(gjwt.RegisteredClaims{
		Issuer:    "sessionauth",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-3 * time.Minute)),
	})
	if _, err := m.Verify(expired); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected expired token to fail with ErrExpired, got %v", err)
	}
}

func TestVerifyUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys: map[string][]byte{
			"k1": pub1,
		},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Kind: KindRefresh, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		ID:        "j1",
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected unknown kid failure, got %v", err)
	}

	good, _, err := m.MintRefresh("u")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := m.Verify(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m2.Verify(good); err == nil {
		t.Fatal("expected verify failure with mismatched key set")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "zero ttl", cfg: Config{RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: testSecret}},
		{name: "zero refresh ttl", cfg: Config{AccessTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: testSecret}},
		{name: "leeway too large", cfg: Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: 3 * time.Minute}},
		{name: "missing secret", cfg: Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, SigningMethod: MethodHS256}},
		{name: "unknown method", cfg: Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, SigningMethod: "rs256", PrivateKey: testSecret}},
		{name: "ed25519 without public key", cfg: Config{AccessTTL: time.Hour, RefreshTTL: time.Hour, SigningMethod: MethodEd25519}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestAcceptUntilCoversLeeway(t *testing.T) {
	clock := &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
	m, err := NewManager(Config{
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Leeway:        time.Minute,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, claims, err := m.MintRefresh("u")
	if err != nil {
		t.Fatalf("mint refresh: %v", err)
	}
	until := m.AcceptUntil(claims)
	if want := claims.ExpiresAt.Time.Add(time.Minute); !until.Equal(want) {
		t.Fatalf("AcceptUntil = %v, want %v", until, want)
	}

	clock.now = until.Add(-time.Second)
	if _, err := m.Verify(token); err != nil {
		t.Fatalf("expected token to verify just before AcceptUntil: %v", err)
	}
	clock.now = until.Add(time.Second)
	if _, err := m.Verify(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired after AcceptUntil, got %v", err)
	}
	if got := m.AcceptUntil(nil); !got.IsZero() {
		t.Fatalf("AcceptUntil(nil) = %v", got)
	}
}
