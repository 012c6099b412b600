package context

import (
	"context"

	"github.com/gorilla/sessions"
	"github.com/julienschmidt/httprouter"

	"dzemat/internal/engine/identity"
)

type Key string

const (
	Principal Key = "principal"
	Session   Key = "session"
	Tenant    Key = "tenant"
	Params    Key = "params"
)

// PrincipalFrom returns the resolved principal, or nil for anonymous requests.
func PrincipalFrom(ctx context.Context) *identity.Principal {
	p, _ := ctx.Value(Principal).(*identity.Principal)
	return p
}

func SessionFrom(ctx context.Context) *sessions.Session {
	s, _ := ctx.Value(Session).(*sessions.Session)
	return s
}

func TenantFrom(ctx context.Context) string {
	t, _ := ctx.Value(Tenant).(string)
	return t
}

func Param(ctx context.Context, name string) string {
	ps, _ := ctx.Value(Params).(httprouter.Params)
	return ps.ByName(name)
}
