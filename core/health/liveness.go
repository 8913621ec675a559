package health

import (
	"net/http"

	"github.com/dmitrymomot/krustie/core/handler"
)

// Liveness indicates if the service process is running.
// Always answers "ALIVE" with 200 OK. No dependency checks.
func Liveness(req *handler.Request, res *handler.Response) {
	res.Text("ALIVE")
}

// NoContent answers 204 without a body. Ideal for high-frequency checks.
func NoContent(req *handler.Request, res *handler.Response) {
	res.Status(http.StatusNoContent)
}
