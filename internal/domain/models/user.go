package models

import "context"

// User is the authenticated caller as seen by the services.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userCtxKey struct{}

// AnonymousUser is used for requests without credentials.
func AnonymousUser() *User {
	return &User{}
}

func (u *User) IsAnonymous() bool {
	return u == nil || u.ID == ""
}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the user set by the auth middleware, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}
