package store

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v4/pgxpool"
)

// PoolSet owns one bounded connection pool per database name reachable from
// a single instance DSN. This is the "bounded pool per (instance, database)
// pair" the instance worker is required to keep (spec §4.4): per-DB
// collectors call Pool(ctx, dbname) to get (and lazily create) the pool for
// that database, reusing it across scrapes instead of opening a fresh
// connection every time.
type PoolSet struct {
	mu       sync.Mutex
	baseDSN  string
	maxConns int32
	pools    map[string]*pgxpool.Pool
}

// NewPoolSet creates an empty PoolSet rooted at baseDSN; maxConns bounds
// each per-database pool.
func NewPoolSet(baseDSN string, maxConns int32) *PoolSet {
	if maxConns <= 0 {
		maxConns = 2
	}
	return &PoolSet{baseDSN: baseDSN, maxConns: maxConns, pools: make(map[string]*pgxpool.Pool)}
}

// Pool returns the pool for dbname, creating it on first use. An empty
// dbname uses baseDSN's own database.
func (ps *PoolSet) Pool(ctx context.Context, dbname string) (*pgxpool.Pool, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	key := dbname
	if p, ok := ps.pools[key]; ok {
		return p, nil
	}

	cfg, err := pgxpool.ParseConfig(ps.baseDSN)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = ps.maxConns
	cfg.ConnConfig.PreferSimpleProtocol = true
	if dbname != "" {
		cfg.ConnConfig.Database = dbname
	}

	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ps.pools[key] = pool
	return pool, nil
}

// Close closes every pool opened through this set. Connections that are
// healthy are returned as part of pool teardown; pgxpool handles that
// internally on Close.
func (ps *PoolSet) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for name, p := range ps.pools {
		p.Close()
		delete(ps.pools, name)
	}
}
