package services

import (
	"fmt"
	"sort"

	"github.com/lborres/reel/core"
)

func endpoint(method, path string, scope core.TokenScope, opID, desc string) core.Endpoint {
	return core.Endpoint{
		Path:   path,
		Method: method,
		Scope:  scope,
		Metadata: core.EndpointMetadata{
			OperationID: opID,
			Description: desc,
		},
	}
}

// BaseEndpoints returns framework-agnostic endpoint descriptions for
// the account and catalog routes. Adapters bind a handler to each one by
// OperationID and put the token gate in front of every non-public route.
func BaseEndpoints() []core.Endpoint {
	session, reset := core.ScopeSession, core.ScopePasswordReset

	return []core.Endpoint{
		// accounts
		endpoint("POST", "/auth/signup", "", "signUp", "Register an account and send its verification code"),
		endpoint("GET", "/auth/verify/:code", "", "verifyAccount", "Verify an account with the code it was sent"),
		endpoint("POST", "/auth/login", "", "login", "Exchange email and password for a session token"),
		endpoint("GET", "/auth/me", session, "getProfile", "Get the caller's profile"),
		endpoint("PATCH", "/auth/me", session, "updateProfile", "Update the caller's name or avatar"),
		endpoint("DELETE", "/auth/me", session, "deleteAccount", "Delete the caller's account"),
		endpoint("POST", "/auth/reset", "", "requestPasswordReset", "Start a password reset"),
		endpoint("PATCH", "/auth/reset/:code", reset, "confirmPasswordReset", "Set a new password using a reset code"),

		// movies
		endpoint("GET", "/movies", "", "listMovies", "List every movie"),
		endpoint("GET", "/movies/filter", "", "filterMovies", "List movies matching query filters"),
		endpoint("GET", "/movies/:id", "", "getMovie", "Get a movie"),
		endpoint("POST", "/movies", session, "createMovie", "Create a movie"),
		endpoint("PUT", "/movies/:id", session, "updateMovie", "Replace a movie"),
		endpoint("DELETE", "/movies/:id", session, "deleteMovie", "Delete a movie"),

		// actors
		endpoint("GET", "/actors", "", "listActors", "List every actor"),
		endpoint("GET", "/actors/:id", "", "getActor", "Get an actor"),
		endpoint("GET", "/actors/:id/movies", "", "listActorMovies", "List the movies an actor appears in"),
		endpoint("POST", "/actors", session, "createActor", "Create an actor"),
		endpoint("PUT", "/actors/:id", session, "updateActor", "Replace an actor"),
		endpoint("DELETE", "/actors/:id", session, "deleteActor", "Delete an actor not referenced by any movie"),

		endpoint("GET", "/health", "", "health", "Report whether the store is reachable"),
	}
}

// EndpointRegistry holds framework-agnostic endpoints keyed by
// "METHOD:PATH" and rejects duplicates.
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
}

// NewEndpointRegistry returns a registry holding BaseEndpoints. It panics
// if two base endpoints share a method and path.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}

	base := BaseEndpoints()
	for i := range base {
		if err := reg.register(&base[i]); err != nil {
			panic(err)
		}
	}

	return reg
}

func key(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// register adds a single endpoint. Returns error if METHOD:PATH is taken.
func (r *EndpointRegistry) register(ep *core.Endpoint) error {
	k := key(ep)
	if _, exists := r.endpoints[k]; exists {
		return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
	}

	r.endpoints[k] = ep
	return nil
}

// RegisterPlugin registers additional endpoints. If any of them conflicts
// with a registered endpoint or with another in the same batch, none are
// registered.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		ep := &endpoints[i]
		k := key(ep)

		if _, exists := r.endpoints[k]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
		if seen[k] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", ep.Method, ep.Path)
		}
		seen[k] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		r.endpoints[key(&ep)] = &ep
	}
	return nil
}

// Endpoints returns every registered endpoint ordered by path, then method.
// Static segments sort before parameters so routers see /movies/filter
// ahead of /movies/:id.
func (r *EndpointRegistry) Endpoints() []core.Endpoint {
	result := make([]core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, *ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return routeLess(result[i].Path, result[j].Path)
		}
		return result[i].Method < result[j].Method
	})
	return result
}

// routeLess orders paths byte-wise except that ':' sorts after every other byte
func routeLess(a, b string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		if a[i] == ':' {
			return false
		}
		if b[i] == ':' {
			return true
		}
		return a[i] < b[i]
	}
	return len(a) < len(b)
}
