package main

import (
	"github.com/cppbear/brinfo/internal/meta"
)

// newCollector opens cfg.CacheDir's BadgerCache (or an in-memory instance
// if unset) and wires it into a fresh Collector. The caller owns the
// returned cache and must Close it.
func newCollector() (*meta.Collector, *meta.BadgerCache, error) {
	cache, err := meta.OpenBadgerCache(cfg.CacheDir, appLog)
	if err != nil {
		return nil, nil, err
	}
	collector := meta.NewCollector(meta.WithInternCache(cache), meta.WithLogger(appLog))
	return collector, cache, nil
}
