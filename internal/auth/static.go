package auth

import "context"

// StaticVerifier maps fixed tokens to users. Used in tests and local
// development where no identity provider is running.
type StaticVerifier struct {
	users map[string]User
}

func NewStaticVerifier(users map[string]User) *StaticVerifier {
	return &StaticVerifier{users: users}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (User, error) {
	u, ok := v.users[token]
	if !ok {
		return User{}, ErrInvalidToken
	}

	return u, nil
}
