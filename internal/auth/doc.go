// Package auth provides authentication and authorization functionality:
// the local credential provider, the per-action requirement model and the
// decision engine that evaluates a principal against a requirement.
package auth
