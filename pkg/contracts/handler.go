package contracts

import "github.com/julienschmidt/httprouter"

// Handler is what each service mounts behind the shared middleware stack.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
