package auth

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/authgrid/authgrid/internal/db/models"
	"github.com/authgrid/authgrid/internal/graph"
)

// Outcome is the verdict of a single authorization check.
type Outcome int

const (
	// OutcomeAllowed lets the request proceed.
	OutcomeAllowed Outcome = iota
	// OutcomeMustLogIn rejects an anonymous caller from an action that needs
	// an authenticated user.
	OutcomeMustLogIn
	// OutcomeAlreadyLoggedIn rejects an authenticated caller from an
	// anonymous-only action.
	OutcomeAlreadyLoggedIn
	// OutcomeForbidden rejects an authenticated caller that lacks the
	// required privilege.
	OutcomeForbidden
)

// String returns the label used in audit log entries.
func (o Outcome) String() string {
	switch o {
	case OutcomeAllowed:
		return "allowed"
	case OutcomeMustLogIn:
		return "must_log_in"
	case OutcomeAlreadyLoggedIn:
		return "already_logged_in"
	default:
		return "forbidden"
	}
}

// Decision is the full result of evaluating a principal against a
// requirement. Rationale is a short machine-greppable token; RequiredGroups
// echoes the group list when the verdict hinged on membership.
type Decision struct {
	Outcome        Outcome
	Rationale      string
	RequiredGroups []string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// Engine evaluates authorization requirements against the group graph.
// Every decision is written to the audit log, allowed or not.
type Engine struct {
	resolver *graph.Resolver
}

// NewEngine creates a new decision engine on top of the graph resolver.
func NewEngine(resolver *graph.Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// Decide evaluates the principal against the requirement for the named
// action. The user may be nil, which counts as anonymous. The request path
// only feeds the audit entry. The only error source is the group graph
// lookup; every other path is a plain verdict.
func (e *Engine) Decide(user *models.User, action, path string, req Requirement) (Decision, error) {
	decision, err := e.decide(user, req)
	if err != nil {
		return Decision{}, err
	}

	e.audit(user, action, path, req, decision)

	return decision, nil
}

func (e *Engine) decide(user *models.User, req Requirement) (Decision, error) {
	anonymous := user.IsAnonymous()

	switch req.Kind {
	case AllowAnonymous:
		return Decision{Outcome: OutcomeAllowed, Rationale: "open_action"}, nil

	case RequireAnonymous:
		if !anonymous {
			return Decision{Outcome: OutcomeAlreadyLoggedIn, Rationale: "anonymous_only"}, nil
		}

		return Decision{Outcome: OutcomeAllowed, Rationale: "anonymous_only"}, nil

	case RequireAdmin:
		if anonymous {
			return Decision{Outcome: OutcomeMustLogIn, Rationale: "admin_required"}, nil
		}

		if !user.CanActAsAdmin() {
			return Decision{Outcome: OutcomeForbidden, Rationale: "admin_required"}, nil
		}

		return Decision{Outcome: OutcomeAllowed, Rationale: "system_admin"}, nil

	default: // Authenticated
		if anonymous {
			return Decision{Outcome: OutcomeMustLogIn, Rationale: "login_required"}, nil
		}

		if len(req.Groups) == 0 {
			return Decision{Outcome: OutcomeAllowed, Rationale: "authenticated"}, nil
		}

		match, err := e.resolver.HasAnyGroup(user, req.Groups...)
		if err != nil {
			return Decision{}, err
		}

		if match.SystemAdmin {
			return Decision{Outcome: OutcomeAllowed, Rationale: "system_admin", RequiredGroups: req.Groups}, nil
		}

		if match.Granted() {
			return Decision{Outcome: OutcomeAllowed, Rationale: "group_member", RequiredGroups: req.Groups}, nil
		}

		return Decision{Outcome: OutcomeForbidden, Rationale: "group_required", RequiredGroups: req.Groups}, nil
	}
}

// audit writes one log line per decision. Denials log at warn so they stand
// out in the default console setup; grants log at info.
func (e *Engine) audit(user *models.User, action, path string, req Requirement, decision Decision) {
	username := models.AnonymousUsername
	if !user.IsAnonymous() {
		username = user.Username
	}

	event := log.Info()
	if !decision.Allowed() {
		event = log.Warn()
	}

	event = event.
		Str("username", username).
		Str("action", action).
		Str("path", path).
		Str("requirement", req.Kind.String()).
		Str("outcome", decision.Outcome.String()).
		Str("rationale", decision.Rationale)

	if len(decision.RequiredGroups) > 0 {
		event = event.Str("required_groups", strings.Join(decision.RequiredGroups, ","))
	}

	event.Msg("Authorization decision")
}
