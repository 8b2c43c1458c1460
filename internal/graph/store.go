// Package graph defines the persistent road network store used by the
// metrics engine.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/efebarandurmaz/roadnet/internal/network"
)

// Store persists a road network and answers the queries the metrics engine
// needs. Degrees are always derived from stored roads, never stored.
type Store interface {
	// Import replaces any stored road network with g.
	Import(ctx context.Context, g *network.Graph) error
	// CountNodes returns the number of stored intersections.
	CountNodes(ctx context.Context) (int, error)
	// CountEdges returns the number of stored roads.
	CountEdges(ctx context.Context) (int, error)
	// AllDegrees returns the degree of every intersection, isolated ones included.
	AllDegrees(ctx context.Context) (map[network.NodeID]int, error)
	// Ping checks that the backing service is reachable.
	Ping(ctx context.Context) error
	// Close releases resources.
	Close(ctx context.Context) error
}

// ErrStoreUnavailable is matched by every UnavailableError.
var ErrStoreUnavailable = errors.New("graph store unavailable")

// UnavailableError wraps a failure of the backing service.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("graph store unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

// Unavailable wraps err as an UnavailableError for op. A nil err stays nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &UnavailableError{Op: op, Err: err}
}
