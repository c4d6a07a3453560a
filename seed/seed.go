// Package seed loads the fixed set of activities the directory starts with.
//
// A default set is embedded in the binary. A YAML file with the same shape can
// replace it:
//
//	- name: Chess Club
//	  description: Learn strategies and compete in chess tournaments
//	  schedule: Fridays, 3:30 PM - 5:00 PM
//	  max_participants: 12
//	  participants:
//	    - michael@mergington.edu
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/signup/directory"
)

//go:embed activities.yaml
var defaultActivities []byte

// ErrNoActivities is returned when a seed contains no activities.
var ErrNoActivities = errors.New("seed contains no activities")

// Default returns the embedded activity set.
func Default() ([]directory.Activity, error) {
	activities, err := Decode(bytes.NewReader(defaultActivities))
	if err != nil {
		return nil, fmt.Errorf("decoding embedded seed: %w", err)
	}
	return activities, nil
}

// Load reads activities from the YAML file at path, or the embedded default
// when path is empty.
func Load(path string) ([]directory.Activity, error) {
	if path == "" {
		return Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file %s: %w", path, err)
	}
	defer f.Close()

	activities, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return activities, nil
}

// Decode parses and validates a YAML list of activities.
func Decode(r io.Reader) ([]directory.Activity, error) {
	var activities []directory.Activity
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&activities); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML seed: %w", err)
	}

	for i := range activities {
		if activities[i].Participants == nil {
			activities[i].Participants = []string{}
		}
	}

	if err := Validate(activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// Validate checks that names are present and unique, capacities are positive
// and no roster repeats an email.
func Validate(activities []directory.Activity) error {
	if len(activities) == 0 {
		return ErrNoActivities
	}

	names := make(map[string]bool, len(activities))
	for _, a := range activities {
		if a.Name == "" {
			return fmt.Errorf("activity name is required")
		}
		if names[a.Name] {
			return fmt.Errorf("duplicate activity %q", a.Name)
		}
		names[a.Name] = true

		if a.MaxParticipants <= 0 {
			return fmt.Errorf("activity %q: max_participants must be positive", a.Name)
		}

		emails := make(map[string]bool, len(a.Participants))
		for _, email := range a.Participants {
			if email == "" {
				return fmt.Errorf("activity %q: empty participant email", a.Name)
			}
			if emails[email] {
				return fmt.Errorf("activity %q: participant %s listed more than once", a.Name, email)
			}
			emails[email] = true
		}
	}
	return nil
}
