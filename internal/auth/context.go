package auth

import (
	"context"

	"github.com/Totarae/shorttty/internal/model"
)

type ctxKey struct{}

// WithUser кладёт пользователя сессии в контекст запроса.
func WithUser(ctx context.Context, user model.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(model.User)
	return user, ok
}
