package httpx

import (
	"context"
	"strings"
	"time"
)

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyScopes    ctxKey = "scopes"
	CtxKeyPrincipal ctxKey = "principal"
)

// Principal is the caller identified by a bearer access token.
type Principal struct {
	Subject   string
	ClientID  string
	Scope     string
	ExpiresAt time.Time
}

// Scopes splits the space-delimited scope string.
func (p Principal) Scopes() []string {
	return strings.Fields(p.Scope)
}

// PrincipalFromContext returns the principal placed by BearerAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(CtxKeyPrincipal).(Principal)
	return p, ok
}

func contextWithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, p.Subject)
	ctx = context.WithValue(ctx, CtxKeyScopes, p.Scopes())
	ctx = context.WithValue(ctx, CtxKeyPrincipal, p)
	return ctx
}

func scopesFromCtx(ctx context.Context) []string {
	if v, ok := ctx.Value(CtxKeyScopes).([]string); ok {
		return v
	}
	return nil
}
