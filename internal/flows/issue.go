package flows

import (
	"errors"

	"github.com/MForofontov/sessionauth/jwt"
)

// IssueFailureKind classifies issue flow failures.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureSubject
	IssueFailureAccess
	IssueFailureRefresh
)

var errEmptySubject = errors.New("empty subject")

// IssueResult carries a freshly minted pair or failure metadata.
type IssueResult struct {
	Failure IssueFailureKind
	Err     error
	Access  Token
	Refresh Token
}

// IssueDeps captures issue flow dependencies.
type IssueDeps struct {
	MintAccess  func(string) (string, *jwt.Claims, error)
	MintRefresh func(string) (string, *jwt.Claims, error)
}

// RunIssue mints an access and refresh token for subject. It never consults
// the revocation store: a fresh jti cannot already be revoked.
func RunIssue(subject string, deps IssueDeps) IssueResult {
	if subject == "" {
		return IssueResult{Failure: IssueFailureSubject, Err: errEmptySubject}
	}

	access, accessClaims, err := deps.MintAccess(subject)
	if err != nil {
		return IssueResult{Failure: IssueFailureAccess, Err: err}
	}
	refresh, refreshClaims, err := deps.MintRefresh(subject)
	if err != nil {
		return IssueResult{Failure: IssueFailureRefresh, Err: err}
	}

	return IssueResult{
		Access:  Token{Value: access, Claims: accessClaims},
		Refresh: Token{Value: refresh, Claims: refreshClaims},
	}
}
