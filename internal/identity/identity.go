// Package identity resolves raw bearer credentials into a Principal. Session
// establishment (wallet signature verification, token issuance) happens in the
// portal's login service; by the time the engine is invoked only the resolved
// principal matters.
package identity

import "context"

// Principal is an authenticated actor: a stable wallet-derived identifier
// plus an admin capability flag.
type Principal struct {
	ID    string
	Admin bool
}

// Resolver turns a raw credential into a Principal.
//
// Errors: implementations return CodeUnauthenticated for missing, malformed,
// expired or otherwise unverifiable credentials.
type Resolver interface {
	Resolve(ctx context.Context, credential string) (Principal, error)
}
