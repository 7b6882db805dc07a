package store

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/encodeous/batsim/state"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs(
	id TEXT PRIMARY KEY,
	topology TEXT,
	seed INTEGER,
	rounds INTEGER,
	nodes INTEGER,
	edges INTEGER,
	finished INTEGER
);
CREATE TABLE IF NOT EXISTS routes(
	run_id TEXT,
	node TEXT,
	originator TEXT,
	next_hop TEXT,
	throughput REAL,
	seqno INTEGER,
	PRIMARY KEY(run_id, node, originator)
);`

// Store keeps the converged originator tables of past runs in a sqlite database.
type Store struct {
	db *sql.DB
}

type Run struct {
	Id       string
	Topology string
	Seed     uint64
	Rounds   int
	Nodes    int
	Edges    int
	Finished time.Time
}

// Route is one originator table entry of one node at the end of a run.
type Route struct {
	Node          state.NodeId
	Originator    state.NodeId
	NextHop       state.NodeId
	Throughput    float64
	LastSeenSeqno uint64
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records run together with every originator table of net. A run without an id is given
// a fresh one, which is returned.
func (s *Store) SaveRun(ctx context.Context, run Run, net *state.Network) (string, error) {
	if run.Id == "" {
		run.Id = uuid.NewString()
	}
	if run.Finished.IsZero() {
		run.Finished = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs(id, topology, seed, rounds, nodes, edges, finished) VALUES(?,?,?,?,?,?,?)`,
		run.Id, run.Topology, int64(run.Seed), run.Rounds, run.Nodes, run.Edges, run.Finished.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to save run %s: %w", run.Id, err)
	}
	for _, id := range net.Order {
		table, err := net.OriginatorTable(id)
		if err != nil {
			return "", err
		}
		for orig, view := range table {
			_, err = tx.ExecContext(ctx, `INSERT INTO routes(run_id, node, originator, next_hop, throughput, seqno) VALUES(?,?,?,?,?,?)`,
				run.Id, string(id), string(orig), string(view.NextHop), view.Throughput, int64(view.LastSeenSeqno))
			if err != nil {
				return "", fmt.Errorf("failed to save route %s -> %s: %w", id, orig, err)
			}
		}
	}
	return run.Id, tx.Commit()
}

// Runs lists every recorded run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, topology, seed, rounds, nodes, edges, finished FROM runs ORDER BY finished, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		var seed, finished int64
		if err := rows.Scan(&run.Id, &run.Topology, &seed, &run.Rounds, &run.Nodes, &run.Edges, &finished); err != nil {
			return nil, err
		}
		run.Seed = uint64(seed)
		run.Finished = time.UnixMilli(finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Routes returns the originator tables recorded for a run, ordered by node then originator.
func (s *Store) Routes(ctx context.Context, runId string) ([]Route, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT node, originator, next_hop, throughput, seqno FROM routes WHERE run_id = ?`, runId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	routes := make([]Route, 0)
	for rows.Next() {
		var r Route
		var node, orig, nh string
		var seqno int64
		if err := rows.Scan(&node, &orig, &nh, &r.Throughput, &seqno); err != nil {
			return nil, err
		}
		r.Node = state.NodeId(node)
		r.Originator = state.NodeId(orig)
		r.NextHop = state.NodeId(nh)
		r.LastSeenSeqno = uint64(seqno)
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(routes, func(a, b Route) int {
		return cmp.Or(cmp.Compare(a.Node, b.Node), cmp.Compare(a.Originator, b.Originator))
	})
	return routes, nil
}
