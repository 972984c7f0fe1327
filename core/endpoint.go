package core

// Endpoint describes one route of the HTTP surface independently of the
// framework that serves it.
type Endpoint struct {
	Path   string
	Method string

	// Scope is the token scope the route requires. Empty means public.
	Scope TokenScope

	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
}

func (e Endpoint) Public() bool {
	return e.Scope == ""
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
