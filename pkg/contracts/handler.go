package contracts

import "github.com/julienschmidt/httprouter"

// Handler mounts a group of routes on the service router.
type Handler interface {
	RegisterRoutes(router *httprouter.Router)
}
