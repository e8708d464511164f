package transport

import (
	"fmt"
	"net/http"
)

// Auth schemes accepted by ForScheme.
const (
	SchemeNone   = ""
	SchemeBearer = "bearer"
	SchemeBasic  = "basic"
	SchemeHeader = "header"
	SchemeQuery  = "query"
)

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, secret string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, secret string) {
	req.Header.Set("Authorization", "Bearer "+secret)
}

// BasicAuth sends User with the secret as password.
type BasicAuth struct {
	User string
}

// Apply implements the Authenticator interface for BasicAuth.
func (a *BasicAuth) Apply(req *http.Request, secret string) {
	req.SetBasicAuth(a.User, secret)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, secret string) {
	req.Header.Set(a.Header, secret)
}

// QueryAuth passes the secret as a query parameter, as private calendar
// feeds often expect.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, secret string) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, secret)
	req.URL.RawQuery = query.Encode()
}

// ForScheme returns the authenticator for a configured scheme. name is the
// user for basic auth, the header for header auth and the parameter for
// query auth.
func ForScheme(scheme, name string) (Authenticator, error) {
	switch scheme {
	case SchemeNone:
		return &NoAuth{}, nil
	case SchemeBearer:
		return &BearerAuth{}, nil
	case SchemeBasic:
		return &BasicAuth{User: name}, nil
	case SchemeHeader:
		if name == "" {
			return nil, fmt.Errorf("header auth needs a header name")
		}
		return &HeaderAuth{Header: name}, nil
	case SchemeQuery:
		if name == "" {
			return nil, fmt.Errorf("query auth needs a parameter name")
		}
		return &QueryAuth{Param: name}, nil
	default:
		return nil, fmt.Errorf("unknown auth scheme %q", scheme)
	}
}
