package flows

import (
	"context"
	"errors"
)

// LoginFailureKind classifies login flow failures.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidCredentials
	LoginFailureVerifier
	LoginFailureIssueAccess
	LoginFailureIssueRefresh
)

// LoginResult carries the issued pair for an authenticated principal.
type LoginResult struct {
	Failure    LoginFailureKind
	Err        error
	Subject    string
	Attributes map[string]string
	Access     Token
	Refresh    Token
}

// LoginDeps captures login flow dependencies.
//
// VerifyCredentials returns an error matching InvalidCredentials for a wrong
// username or password. Any other error is a verifier failure.
type LoginDeps struct {
	VerifyCredentials  func(ctx context.Context, username, password string) (string, map[string]string, error)
	InvalidCredentials error
	Issue              IssueDeps
}

// RunLogin authenticates username/password and issues a fresh token pair.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	if username == "" || password == "" {
		return LoginResult{Failure: LoginFailureInvalidCredentials, Err: deps.InvalidCredentials}
	}

	subject, attrs, err := deps.VerifyCredentials(ctx, username, password)
	if err != nil {
		if deps.InvalidCredentials != nil && errors.Is(err, deps.InvalidCredentials) {
			return LoginResult{Failure: LoginFailureInvalidCredentials, Err: err}
		}
		return LoginResult{Failure: LoginFailureVerifier, Err: err}
	}

	issued := RunIssue(subject, deps.Issue)
	switch issued.Failure {
	case IssueFailureNone:
	case IssueFailureSubject:
		return LoginResult{Failure: LoginFailureVerifier, Err: issued.Err}
	case IssueFailureAccess:
		return LoginResult{Failure: LoginFailureIssueAccess, Err: issued.Err, Subject: subject}
	default:
		return LoginResult{Failure: LoginFailureIssueRefresh, Err: issued.Err, Subject: subject}
	}

	return LoginResult{
		Subject:    subject,
		Attributes: attrs,
		Access:     issued.Access,
		Refresh:    issued.Refresh,
	}
}
