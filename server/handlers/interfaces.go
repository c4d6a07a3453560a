// Package handlers provides HTTP handlers for the signup server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers reach the activity directory through the small interfaces below
// so tests can substitute fakes.
package handlers

import "github.com/nomis52/signup/directory"

// ActivityLister provides the full set of activities.
type ActivityLister interface {
	List() map[string]directory.Activity
}

// ActivityGetter provides a single activity by name.
type ActivityGetter interface {
	Get(name string) (directory.Activity, error)
}

// Registrar adds and removes participants.
type Registrar interface {
	SignUp(name, email string) error
	Unregister(name, email string) error
}
