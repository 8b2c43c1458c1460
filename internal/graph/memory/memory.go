// Package memory implements graph.Store over an in-process snapshot.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/efebarandurmaz/roadnet/internal/graph"
	"github.com/efebarandurmaz/roadnet/internal/network"
)

var errClosed = errors.New("store closed")

// Store keeps one immutable road network in memory.
type Store struct {
	mu      sync.RWMutex
	g       *network.Graph
	degrees map[network.NodeID]int
	closed  bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{g: &network.Graph{}, degrees: map[network.NodeID]int{}}
}

// Import validates g and swaps it in as the stored network.
func (s *Store) Import(ctx context.Context, g *network.Graph) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	snapshot := &network.Graph{
		Nodes: append([]network.Node(nil), g.Nodes...),
		Edges: append([]network.Edge(nil), g.Edges...),
	}
	degrees := snapshot.Degrees()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return graph.Unavailable("import", errClosed)
	}
	s.g = snapshot
	s.degrees = degrees
	return nil
}

func (s *Store) CountNodes(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "count nodes"); err != nil {
		return 0, err
	}
	return s.g.NodeCount(), nil
}

func (s *Store) CountEdges(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "count edges"); err != nil {
		return 0, err
	}
	return s.g.EdgeCount(), nil
}

// AllDegrees returns a copy of the degree view computed at import time.
func (s *Store) AllDegrees(ctx context.Context) (map[network.NodeID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx, "degrees"); err != nil {
		return nil, err
	}
	out := make(map[network.NodeID]int, len(s.degrees))
	for id, d := range s.degrees {
		out[id] = d
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check(ctx, "ping")
}

func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// check must be called with s.mu held.
func (s *Store) check(ctx context.Context, op string) error {
	if s.closed {
		return graph.Unavailable(op, errClosed)
	}
	return graph.Unavailable(op, ctx.Err())
}

var _ graph.Store = (*Store)(nil)
