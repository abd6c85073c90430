package domain

import "fmt"

// DuplicatePolicy decides what a loader does when two sources declare the same name
type DuplicatePolicy string

const (
	// DuplicateOverwrite keeps the last loaded source
	DuplicateOverwrite DuplicatePolicy = "overwrite"
	// DuplicateReject keeps the first loaded source and skips later ones
	DuplicateReject DuplicatePolicy = "reject"
)

// ParseDuplicatePolicy parses a policy name; empty means DuplicateOverwrite
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "", DuplicateOverwrite:
		return DuplicateOverwrite, nil
	case DuplicateReject:
		return DuplicateReject, nil
	}
	return "", fmt.Errorf("invalid duplicate policy: %s (must be overwrite or reject)", s)
}

// Warning records a declarative source that was skipped or partially applied
type Warning struct {
	Origin string `json:"origin"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	if w.Name == "" {
		return fmt.Sprintf("%s: %s", w.Origin, w.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", w.Origin, w.Name, w.Reason)
}
