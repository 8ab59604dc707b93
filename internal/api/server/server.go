// Package server constructs the HTTP server hosting the notification and
// reminder APIs.
package server

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// New returns a server for the API router on addr. Lifecycle is owned by the
// caller, which shuts it down together with the dispatch loop.
func New(addr string, router *ginext.Engine) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: router,
	}
}
