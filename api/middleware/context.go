package middleware

import (
	"context"

	"github.com/roomezes/roomezes-backend/pkg/auth/session"
)

type contextKey string

const ctxSession contextKey = "session"

// WithSession injects the authenticated session into the context.
func WithSession(ctx context.Context, sc session.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sc)
}

// SessionFromContext returns the authenticated session, or the zero session when the request
// is anonymous.
func SessionFromContext(ctx context.Context) session.Context {
	if ctx == nil {
		return session.Context{}
	}
	if v, ok := ctx.Value(ctxSession).(session.Context); ok {
		return v
	}
	return session.Context{}
}

func UserIDFromContext(ctx context.Context) string {
	sc := SessionFromContext(ctx)
	if sc.IsZero() {
		return ""
	}
	return sc.UserID.String()
}

func RoleFromContext(ctx context.Context) string {
	return string(SessionFromContext(ctx).Role)
}
