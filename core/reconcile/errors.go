package reconcile

import (
	"errors"
	"fmt"

	"inventory-sync/core/inventory"
)

var (
	// ErrAmbiguousMatch is reported when the MAC tier finds several owners
	// without a clear winner.
	ErrAmbiguousMatch = errors.New("ambiguous match")
	// ErrDuplicateName is reported for a second entity with the same name in one scope.
	ErrDuplicateName = errors.New("duplicate name in scope")
	// ErrInvalidAddress is reported for an address literal that cannot be parsed.
	ErrInvalidAddress = errors.New("invalid address literal")
	// ErrUnresolvableCluster is reported when an entity cannot be mapped to a cluster.
	ErrUnresolvableCluster = errors.New("unresolvable cluster")
	// ErrNotPermitted is reported for entities outside the permitted clusters and
	// for addresses outside the permitted subnets.
	ErrNotPermitted = errors.New("not permitted")
	// ErrFiltered is reported for names rejected by include/exclude patterns.
	ErrFiltered = errors.New("filtered")
	// ErrSourceUnavailable is reported when the source cannot be queried.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// EntityError is a per-entity failure. It skips the entity but never aborts a run.
type EntityError struct {
	ObjectType string
	Name       string
	Err        error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.ObjectType, e.Name, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

func entityError(t string, name string, err error) *EntityError {
	return &EntityError{ObjectType: t, Name: name, Err: err}
}

func machineError(t inventory.ObjectType, name string, err error) *EntityError {
	return entityError(string(t), name, err)
}

// SourceError is a failure to query the source. It aborts the run of that source.
type SourceError struct {
	Source string
	Phase  string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Phase, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrSourceUnavailable) hold for every SourceError.
func (e *SourceError) Is(target error) bool {
	return target == ErrSourceUnavailable
}
