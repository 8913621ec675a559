package dispatch

import (
	"time"

	"github.com/dmitrymomot/krustie/core/handler"
)

// Observer is notified once for every finalized response, including error
// responses. Observers run on the request goroutine and must not block.
type Observer interface {
	Observe(req *handler.Request, res *handler.Response, elapsed time.Duration)
}

// ObserverFunc adapts an ordinary function to the Observer interface.
type ObserverFunc func(req *handler.Request, res *handler.Response, elapsed time.Duration)

// Observe implements Observer.
func (f ObserverFunc) Observe(req *handler.Request, res *handler.Response, elapsed time.Duration) {
	f(req, res, elapsed)
}

// Route returns the pattern of the route that served res, or an empty string
// when the request did not resolve.
func Route(res *handler.Response) string {
	return res.LocalString(handler.LocalRoute)
}
