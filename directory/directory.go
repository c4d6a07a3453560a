// Package directory holds the in-memory registry of activities and their
// participant rosters.
//
// The set of activities is fixed when the Directory is built. Only rosters
// change afterwards, through SignUp and Unregister. A single RWMutex guards the
// whole mapping so each check-then-mutate sequence is atomic.
package directory

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/nomis52/signup/metrics"
)

var (
	// ErrActivityNotFound is returned when the named activity does not exist.
	ErrActivityNotFound = errors.New("Activity not found")
	// ErrAlreadySignedUp is returned when the email is already on the roster.
	ErrAlreadySignedUp = errors.New("Student is already signed up for this activity")
	// ErrNotSignedUp is returned when unregistering an email that is not on the roster.
	ErrNotSignedUp = errors.New("Student is not signed up for this activity")
)

// Activity is a named extracurricular offering.
type Activity struct {
	Name            string   `json:"-" yaml:"name"`
	Description     string   `json:"description" yaml:"description"`
	Schedule        string   `json:"schedule" yaml:"schedule"`
	MaxParticipants int      `json:"max_participants" yaml:"max_participants"`
	Participants    []string `json:"participants" yaml:"participants"`
}

func (a Activity) clone() Activity {
	a.Participants = append(make([]string, 0, len(a.Participants)), a.Participants...)
	return a
}

// Occupancy describes how full one activity's roster is.
type Occupancy struct {
	Activity        string
	Participants    int
	MaxParticipants int
}

// SpotsLeft returns the remaining advisory capacity. It is negative when the
// roster is over capacity.
func (o Occupancy) SpotsLeft() int {
	return o.MaxParticipants - o.Participants
}

// Snapshot is a copy of every roster, keyed by activity name.
type Snapshot map[string][]string

// Directory maps activity names to their records.
type Directory struct {
	logger     *slog.Logger
	metrics    *directoryMetrics
	mu         sync.RWMutex
	activities map[string]*Activity // protected by mu
}

// Option configures a Directory.
type Option func(*Directory) error

// WithLogger sets the logger used for roster changes.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) error {
		d.logger = logger
		return nil
	}
}

// WithMetrics registers the directory's metrics with reg.
func WithMetrics(reg metrics.Registry) Option {
	return func(d *Directory) error {
		m, err := newDirectoryMetrics(reg)
		if err != nil {
			return err
		}
		d.metrics = m
		return nil
	}
}

// New builds a Directory from the given activities.
// Names must be unique and non-empty, and no roster may repeat an email.
func New(activities []Activity, opts ...Option) (*Directory, error) {
	d := &Directory{
		logger:     slog.Default(),
		activities: make(map[string]*Activity, len(activities)),
	}

	for _, a := range activities {
		if a.Name == "" {
			return nil, fmt.Errorf("activity with empty name")
		}
		if _, ok := d.activities[a.Name]; ok {
			return nil, fmt.Errorf("duplicate activity %q", a.Name)
		}
		seen := make(map[string]bool, len(a.Participants))
		for _, email := range a.Participants {
			if seen[email] {
				return nil, fmt.Errorf("activity %q lists %s more than once", a.Name, email)
			}
			seen[email] = true
		}
		c := a.clone()
		d.activities[a.Name] = &c
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	if d.metrics != nil {
		for name, a := range d.activities {
			d.metrics.rosterSize(name, len(a.Participants))
		}
	}

	return d, nil
}

// List returns a copy of every activity keyed by name.
func (d *Directory) List() map[string]Activity {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make(map[string]Activity, len(d.activities))
	for name, a := range d.activities {
		result[name] = a.clone()
	}
	return result
}

// Get returns a copy of the named activity.
func (d *Directory) Get(name string) (Activity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	a, ok := d.activities[name]
	if !ok {
		return Activity{}, ErrActivityNotFound
	}
	return a.clone(), nil
}

// SignUp appends email to the named activity's roster.
// Capacity is advisory and is not checked.
func (d *Directory) SignUp(name, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.activities[name]
	if !ok {
		d.metrics.operation(opSignUp, resultNotFound)
		return ErrActivityNotFound
	}
	if slices.Contains(a.Participants, email) {
		d.metrics.operation(opSignUp, resultRejected)
		return ErrAlreadySignedUp
	}

	a.Participants = append(a.Participants, email)
	d.metrics.operation(opSignUp, resultOK)
	d.metrics.rosterSize(name, len(a.Participants))
	d.logger.Info("participant signed up", "activity", name, "email", email, "participants", len(a.Participants))
	return nil
}

// Unregister removes email from the named activity's roster.
func (d *Directory) Unregister(name, email string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.activities[name]
	if !ok {
		d.metrics.operation(opUnregister, resultNotFound)
		return ErrActivityNotFound
	}
	i := slices.Index(a.Participants, email)
	if i < 0 {
		d.metrics.operation(opUnregister, resultRejected)
		return ErrNotSignedUp
	}

	a.Participants = slices.Delete(a.Participants, i, i+1)
	d.metrics.operation(opUnregister, resultOK)
	d.metrics.rosterSize(name, len(a.Participants))
	d.logger.Info("participant unregistered", "activity", name, "email", email, "participants", len(a.Participants))
	return nil
}

// Occupancy returns the roster size and capacity of every activity, sorted by name.
func (d *Directory) Occupancy() []Occupancy {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]Occupancy, 0, len(d.activities))
	for name, a := range d.activities {
		result = append(result, Occupancy{
			Activity:        name,
			Participants:    len(a.Participants),
			MaxParticipants: a.MaxParticipants,
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Activity < result[j].Activity
	})
	return result
}

// Snapshot copies every roster.
func (d *Directory) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	snap := make(Snapshot, len(d.activities))
	for name, a := range d.activities {
		snap[name] = slices.Clone(a.Participants)
	}
	return snap
}

// Restore replaces rosters with those in snap. Activities missing from snap
// are left untouched; names in snap that are not in the directory are an error
// and nothing is changed.
func (d *Directory) Restore(snap Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for name := range snap {
		if _, ok := d.activities[name]; !ok {
			return fmt.Errorf("restoring %q: %w", name, ErrActivityNotFound)
		}
	}
	for name, participants := range snap {
		a := d.activities[name]
		a.Participants = append(make([]string, 0, len(participants)), participants...)
		d.metrics.rosterSize(name, len(a.Participants))
	}
	return nil
}
