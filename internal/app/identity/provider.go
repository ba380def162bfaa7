package identity

import "errors"

// ErrAnonymous signals that the request carries no authenticated user.
var ErrAnonymous = errors.New("no authenticated user")

// User is the identity the external provider resolved for a request.
type User struct {
	ID    string
	Email string
}

// Provider resolves the authenticated caller from request credentials.
// Authentication itself lives outside this service; a Provider only maps
// whatever the upstream handed us (headers, session id) to a user record.
type Provider interface {
	// CurrentUser returns the authenticated user, or ErrAnonymous when the
	// credentials are missing or unrecognised.
	CurrentUser(credentials map[string]string) (User, error)
}

const (
	HeaderUserID    = "X-Auth-User-Id"
	HeaderUserEmail = "X-Auth-User-Email"
)

// HeaderProvider trusts identity headers injected by an authenticating
// reverse proxy in front of the service.
type HeaderProvider struct{}

// NewHeaderProvider returns a Provider reading the X-Auth-* headers.
func NewHeaderProvider() *HeaderProvider {
	return &HeaderProvider{}
}

func (p *HeaderProvider) CurrentUser(credentials map[string]string) (User, error) {
	id := credentials[HeaderUserID]
	email := credentials[HeaderUserEmail]
	if id == "" {
		return User{}, ErrAnonymous
	}
	return User{ID: id, Email: email}, nil
}
