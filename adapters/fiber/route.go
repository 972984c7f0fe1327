package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/reel"
)

type Adapter struct {
	app *fiber.App
}

var _ reel.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

// RegisterRoutes mounts every endpoint of r under r.BasePath. Routes with a
// scope get the token gate in front of their handler.
func (a *Adapter) RegisterRoutes(r *reel.Reel) error {
	api := a.app.Group(r.BasePath)
	h := newHandlers(r)

	for _, ep := range r.Endpoints {
		handler, ok := h.byOperation[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler for operation %q (%s %s)", ep.Metadata.OperationID, ep.Method, ep.Path)
		}

		methods := []string{ep.Method}
		if ep.Public() {
			api.Add(methods, ep.Path, handler)
			continue
		}
		api.Add(methods, ep.Path, RequireScope(r.Tokens, ep.Scope), handler)
	}

	return nil
}
