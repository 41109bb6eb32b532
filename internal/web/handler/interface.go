// Package handler holds the shared pieces of the web handler services:
// route constants and the handler contract. Each concrete handler lives in
// its own subpackage with a package-level Handler instance that registers
// its routes and its controller classification on Init.
package handler

import (
	"github.com/authgrid/authgrid/internal/catalog"
)

// Controller describes a handler's identity to the action security catalog:
// the controller name its routes are registered under and the default
// classification of its actions.
type Controller interface {
	ControllerName() string
	Introspection() catalog.Introspection
}
