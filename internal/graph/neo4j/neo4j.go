package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/roadnet/internal/graph"
	"github.com/efebarandurmaz/roadnet/internal/network"
	"github.com/efebarandurmaz/roadnet/internal/observability"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 10000

// ErrIncompleteImport is returned by reads while the stored network does not
// match the last finished import.
var ErrIncompleteImport = errors.New("stored road network is incomplete")

const (
	createConstraint = "CREATE CONSTRAINT intersection_id IF NOT EXISTS " +
		"FOR (i:Intersection) REQUIRE i.id IS UNIQUE"
	// The import state node is flipped to "loading" before anything is
	// deleted and only marked "complete" after the last road batch.
	beginImport = "MERGE (m:ImportState {key: 'roadnet'}) " +
		"SET m.status = 'loading', m.nodes = $nodes, m.edges = $edges"
	finishImport = "MATCH (m:ImportState {key: 'roadnet'}) SET m.status = 'complete'"
	importState  = "OPTIONAL MATCH (m:ImportState {key: 'roadnet'}) " +
		"RETURN m.status AS status, m.nodes AS nodes, m.edges AS edges, " +
		"COUNT { (:Intersection) } AS stored_nodes, " +
		"COUNT { (:Intersection)-[:ROAD]->(:Intersection) } AS stored_edges"
	deleteBatch = "MATCH (i:Intersection) WITH i LIMIT $limit " +
		"DETACH DELETE i RETURN count(*) AS deleted"
	createNodes = "UNWIND $rows AS row " +
		"CREATE (:Intersection {id: row.id, x: row.x, y: row.y})"
	createEdges = "UNWIND $rows AS row " +
		"MATCH (a:Intersection {id: row.source}) " +
		"MATCH (b:Intersection {id: row.target}) " +
		"CREATE (a)-[:ROAD {distance: row.distance}]->(b)"
	countNodes = "MATCH (i:Intersection) RETURN count(i) AS total"
	countEdges = "MATCH (:Intersection)-[r:ROAD]->(:Intersection) RETURN count(r) AS total"
	// Outgoing plus incoming keeps a self-loop at degree 2.
	allDegrees = "MATCH (i:Intersection) " +
		"RETURN i.id AS id, COUNT { (i)-[:ROAD]->() } + COUNT { (i)<-[:ROAD]-() } AS degree"
)

// Config holds connection settings.
type Config struct {
	URI       string
	Username  string
	Password  string
	Database  string
	BatchSize int
}

// runner executes one Cypher statement in its own managed transaction.
type runner interface {
	run(ctx context.Context, mode neo4j.AccessMode, query string, params map[string]any) ([]*neo4j.Record, error)
	ping(ctx context.Context) error
	close(ctx context.Context) error
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *driverRunner) run(ctx context.Context, mode neo4j.AccessMode, query string, params map[string]any) ([]*neo4j.Record, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	}
	var (
		out any
		err error
	)
	if mode == neo4j.AccessModeWrite {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return nil, err
	}
	return out.([]*neo4j.Record), nil
}

func (r *driverRunner) ping(ctx context.Context) error  { return r.driver.VerifyConnectivity(ctx) }
func (r *driverRunner) close(ctx context.Context) error { return r.driver.Close(ctx) }

// Store implements graph.Store using Neo4j.
type Store struct {
	r         runner
	batchSize int
}

// New connects to Neo4j and verifies connectivity before returning.
func New(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, graph.Unavailable("connect", err)
	}
	return newStore(&driverRunner{driver: driver, database: cfg.Database}, cfg.BatchSize), nil
}

func newStore(r runner, batchSize int) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Store{r: r, batchSize: batchSize}
}

func (s *Store) write(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	return s.r.run(ctx, neo4j.AccessModeWrite, query, params)
}

func (s *Store) read(ctx context.Context, query string) ([]*neo4j.Record, error) {
	return s.r.run(ctx, neo4j.AccessModeRead, query, nil)
}

// Import removes any stored intersections and roads, then writes g in
// batches. Roads are created rather than merged so parallel roads survive.
// Reads fail with ErrIncompleteImport until every batch has been written.
func (s *Store) Import(ctx context.Context, g *network.Graph) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}

	if _, err := s.write(ctx, createConstraint, nil); err != nil {
		return graph.Unavailable("create constraint", err)
	}
	counts := map[string]any{"nodes": int64(g.NodeCount()), "edges": int64(g.EdgeCount())}
	if _, err := s.write(ctx, beginImport, counts); err != nil {
		return graph.Unavailable("begin import", err)
	}

	if err := s.clear(ctx); err != nil {
		return err
	}

	for _, rows := range batches(nodeRows(g.Nodes), s.batchSize) {
		if _, err := s.write(ctx, createNodes, map[string]any{"rows": rows}); err != nil {
			return graph.Unavailable("import intersections", err)
		}
	}
	slog.Info("Imported intersections", "count", g.NodeCount())

	for _, rows := range batches(edgeRows(g.Edges), s.batchSize) {
		if _, err := s.write(ctx, createEdges, map[string]any{"rows": rows}); err != nil {
			return graph.Unavailable("import roads", err)
		}
	}
	slog.Info("Imported roads", "count", g.EdgeCount())

	if _, err := s.write(ctx, finishImport, nil); err != nil {
		return graph.Unavailable("finish import", err)
	}
	return nil
}

func (s *Store) clear(ctx context.Context) error {
	for {
		recs, err := s.write(ctx, deleteBatch, map[string]any{"limit": s.batchSize})
		if err != nil {
			return graph.Unavailable("clear", err)
		}
		if len(recs) != 1 {
			return graph.Unavailable("clear", fmt.Errorf("expected one result row, got %d", len(recs)))
		}
		deleted, _, err := neo4j.GetRecordValue[int64](recs[0], "deleted")
		if err != nil {
			return graph.Unavailable("clear", err)
		}
		if deleted == 0 {
			return nil
		}
	}
}

// verifyImport accepts an empty database or one whose stored counts match a
// finished import.
func (s *Store) verifyImport(ctx context.Context) error {
	recs, err := s.read(ctx, importState)
	if err != nil {
		return graph.Unavailable("verify import", err)
	}
	if len(recs) != 1 {
		return graph.Unavailable("verify import", fmt.Errorf("%w: %d import state rows", ErrIncompleteImport, len(recs)))
	}
	st, err := decodeImportState(recs[0])
	if err != nil {
		return graph.Unavailable("verify import", err)
	}
	if err := st.check(); err != nil {
		return graph.Unavailable("verify import", err)
	}
	return nil
}

type importStatus struct {
	status      string
	marked      bool
	nodes       int64
	edges       int64
	storedNodes int64
	storedEdges int64
}

func (st importStatus) check() error {
	if !st.marked {
		if st.storedNodes == 0 && st.storedEdges == 0 {
			return nil
		}
		return fmt.Errorf("%w: %d intersections stored without an import record", ErrIncompleteImport, st.storedNodes)
	}
	if st.status != "complete" {
		return fmt.Errorf("%w: import is %q", ErrIncompleteImport, st.status)
	}
	if st.nodes != st.storedNodes || st.edges != st.storedEdges {
		return fmt.Errorf("%w: expected %d intersections and %d roads, stored %d and %d",
			ErrIncompleteImport, st.nodes, st.edges, st.storedNodes, st.storedEdges)
	}
	return nil
}

func decodeImportState(rec *neo4j.Record) (importStatus, error) {
	var st importStatus
	status, isNil, err := neo4j.GetRecordValue[string](rec, "status")
	if err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	st.status, st.marked = status, !isNil
	for key, dst := range map[string]*int64{
		"nodes": &st.nodes, "edges": &st.edges,
		"stored_nodes": &st.storedNodes, "stored_edges": &st.storedEdges,
	} {
		v, _, err := neo4j.GetRecordValue[int64](rec, key)
		if err != nil {
			return st, fmt.Errorf("decode %s: %w", key, err)
		}
		*dst = v
	}
	return st, nil
}

func (s *Store) CountNodes(ctx context.Context) (int, error) {
	n, err := s.count(ctx, "count_nodes", countNodes)
	return n, graph.Unavailable("count nodes", err)
}

func (s *Store) CountEdges(ctx context.Context) (int, error) {
	n, err := s.count(ctx, "count_edges", countEdges)
	return n, graph.Unavailable("count edges", err)
}

func (s *Store) count(ctx context.Context, name, query string) (int, error) {
	ctx, span := observability.StartQuerySpan(ctx, "neo4j", name)
	defer span.End()

	total, err := s.readTotal(ctx, query)
	if err != nil {
		observability.RecordError(span, err)
		return 0, err
	}
	return int(total), nil
}

func (s *Store) readTotal(ctx context.Context, query string) (int64, error) {
	if err := s.verifyImport(ctx); err != nil {
		return 0, err
	}
	recs, err := s.read(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(recs) != 1 {
		return 0, fmt.Errorf("expected one result row, got %d", len(recs))
	}
	total, _, err := neo4j.GetRecordValue[int64](recs[0], "total")
	return total, err
}

func (s *Store) AllDegrees(ctx context.Context) (map[network.NodeID]int, error) {
	ctx, span := observability.StartQuerySpan(ctx, "neo4j", "all_degrees")
	defer span.End()

	degrees, err := s.readDegrees(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return nil, graph.Unavailable("degrees", err)
	}
	return degrees, nil
}

func (s *Store) readDegrees(ctx context.Context) (map[network.NodeID]int, error) {
	if err := s.verifyImport(ctx); err != nil {
		return nil, err
	}
	recs, err := s.read(ctx, allDegrees)
	if err != nil {
		return nil, err
	}
	degrees := make(map[network.NodeID]int, len(recs))
	for _, rec := range recs {
		id, degree, err := decodeDegree(rec)
		if err != nil {
			return nil, err
		}
		degrees[id] = degree
	}
	return degrees, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return graph.Unavailable("ping", s.r.ping(ctx))
}

func (s *Store) Close(ctx context.Context) error {
	return s.r.close(ctx)
}

func decodeDegree(rec *neo4j.Record) (network.NodeID, int, error) {
	id, isNil, err := neo4j.GetRecordValue[int64](rec, "id")
	if err != nil {
		return 0, 0, fmt.Errorf("decode id: %w", err)
	}
	if isNil {
		return 0, 0, fmt.Errorf("decode id: intersection without id")
	}
	degree, _, err := neo4j.GetRecordValue[int64](rec, "degree")
	if err != nil {
		return 0, 0, fmt.Errorf("decode degree: %w", err)
	}
	return network.NodeID(id), int(degree), nil
}

func nodeRows(nodes []network.Node) []map[string]any {
	rows := make([]map[string]any, len(nodes))
	for i, n := range nodes {
		rows[i] = map[string]any{"id": int64(n.ID), "x": n.X, "y": n.Y}
	}
	return rows
}

func edgeRows(edges []network.Edge) []map[string]any {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{"source": int64(e.Source), "target": int64(e.Target), "distance": e.Distance}
	}
	return rows
}

func batches(rows []map[string]any, size int) [][]map[string]any {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]map[string]any
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

var _ graph.Store = (*Store)(nil)
