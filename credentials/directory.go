package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MForofontov/sessionauth"
	"github.com/MForofontov/sessionauth/password"
)

// User is one entry of a Directory. PasswordHash is an Argon2id PHC string.
type User struct {
	Username     string            `koanf:"username"`
	Subject      string            `koanf:"subject"`
	PasswordHash string            `koanf:"password_hash"`
	Disabled     bool              `koanf:"disabled"`
	Attributes   map[string]string `koanf:"attributes"`
}

// Directory is a fixed, in-memory set of users checked with Argon2id.
// It implements sessionauth.CredentialVerifier.
type Directory struct {
	hasher *password.Argon2
	users  map[string]User
	// decoy is verified for unknown users so lookups cost the same either way.
	decoy string
}

var _ sessionauth.CredentialVerifier = (*Directory)(nil)

// NewDirectory indexes users by normalized username and checks that every
// stored hash parses.
func NewDirectory(hasher *password.Argon2, users []User) (*Directory, error) {
	if hasher == nil {
		return nil, errors.New("credentials: hasher is required")
	}

	d := &Directory{
		hasher: hasher,
		users:  make(map[string]User, len(users)),
	}
	for i, u := range users {
		key := normalize(u.Username)
		if key == "" {
			return nil, fmt.Errorf("credentials: user %d has no username", i)
		}
		if _, dup := d.users[key]; dup {
			return nil, fmt.Errorf("credentials: duplicate username %q", u.Username)
		}
		if strings.TrimSpace(u.Subject) == "" {
			u.Subject = key
		}
		if _, err := hasher.NeedsUpgrade(u.PasswordHash); err != nil {
			return nil, fmt.Errorf("credentials: user %q: %w", u.Username, err)
		}
		d.users[key] = u
	}

	decoy, err := hasher.Hash("decoy-password-not-in-use")
	if err != nil {
		return nil, fmt.Errorf("credentials: decoy hash: %w", err)
	}
	d.decoy = decoy
	return d, nil
}

// VerifyCredentials resolves username and checks password. Unknown users,
// disabled users and wrong passwords all return sessionauth.ErrInvalidCredentials.
func (d *Directory) VerifyCredentials(ctx context.Context, username, pw string) (sessionauth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return sessionauth.Identity{}, err
	}

	u, found := d.users[normalize(username)]
	hash := d.decoy
	if found {
		hash = u.PasswordHash
	}

	ok, err := d.hasher.Verify(pw, hash)
	if errors.Is(err, password.ErrPasswordTooLong) {
		return sessionauth.Identity{}, sessionauth.ErrInvalidCredentials
	}
	if err != nil {
		return sessionauth.Identity{}, err
	}
	if !found || !ok || u.Disabled {
		return sessionauth.Identity{}, sessionauth.ErrInvalidCredentials
	}

	return sessionauth.Identity{Subject: u.Subject, Attributes: cloneAttributes(u.Attributes)}, nil
}

// Len reports the number of users.
func (d *Directory) Len() int { return len(d.users) }

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func cloneAttributes(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
