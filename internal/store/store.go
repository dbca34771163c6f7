// Package store persists Server records and exposes them for lookup,
// full-text search, and category listing. It combines a bbolt key-value
// store (system of record) with a Bleve full-text index (derived, rebuilt
// from bbolt if it ever goes missing or out of sync).
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mcpfinder/mcpfinder/internal/mcferrors"

	"go.uber.org/zap"
)

// Store is the sole persistence entry point used by every other internal
// package. It owns both the bbolt handle and the Bleve index and keeps
// them in lockstep on every write.
type Store struct {
	bolt  *boltDB
	bleve *bleveIndex

	// writeMu serializes the two-phase bbolt+Bleve write in UpsertServers.
	writeMu sync.Mutex

	logger *zap.SugaredLogger
}

// Open creates or opens the on-disk store rooted at dataDir, creating the
// directory and both backing files if they do not yet exist.
func Open(dataDir string, logger *zap.SugaredLogger) (*Store, error) {
	bolt, err := openBolt(dataDir, logger)
	if err != nil {
		return nil, err
	}

	bi, err := openBleve(dataDir, logger)
	if err != nil {
		_ = bolt.Close()
		return nil, err
	}

	s := &Store{bolt: bolt, bleve: bi, logger: logger}

	if count, err := bolt.count(); err == nil {
		if docCount, err := bi.documentCount(); err == nil && uint64(count) != docCount {
			if err := s.reindexAll(); err != nil {
				logger.Warnw("full-text reindex after open failed", "error", err)
			}
		}
	}

	return s, nil
}

// Close releases both backing stores. Safe to call once; callers should
// defer it right after Open succeeds.
func (s *Store) Close() error {
	var firstErr error
	if err := s.bleve.Close(); err != nil {
		firstErr = err
	}
	if err := s.bolt.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// reindexAll rebuilds the Bleve index from bbolt's current contents. Used
// at startup when the doc counts of the two have drifted.
func (s *Store) reindexAll() error {
	rows, err := s.bolt.listAll()
	if err != nil {
		return err
	}
	return s.bleve.indexServers(rows)
}

// UpsertServers writes rows to bbolt (the system of record) and then
// updates the Bleve index in the same call. Sources are merged
// monotonically per row by the bbolt layer; the rows slice is updated in
// place to reflect the merged Sources before being indexed, so searches
// never observe a narrower Sources set than what was just persisted.
func (s *Store) UpsertServers(ctx context.Context, rows []Server) error {
	if len(rows) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.bolt.upsertServers(rows); err != nil {
		return err
	}
	if err := s.bleve.indexServers(rows); err != nil {
		// bbolt already committed; the index is now stale until the next
		// Open() reconciles doc counts. Log and surface the error so the
		// Sync Engine can record it in the SyncLog, but do not roll back
		// the bbolt write - bbolt is the source of truth.
		s.logger.Errorw("bleve index update failed after bbolt commit", "error", err, "rows", len(rows))
		return fmt.Errorf("index update: %w", err)
	}
	return nil
}

// GetServerByIdOrSlug resolves key as an ID first, then as a slug. Returns
// mcferrors.ErrNotFound when neither matches.
func (s *Store) GetServerByIdOrSlug(key string) (*Server, error) {
	if key == "" {
		return nil, &mcferrors.ErrInvalidInput{Field: "id_or_slug", Reason: "must not be empty"}
	}
	if server, err := s.bolt.getServer(key); err != nil {
		return nil, err
	} else if server != nil {
		return server, nil
	}
	server, err := s.bolt.getServerBySlug(key)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, &mcferrors.ErrNotFound{Key: key}
	}
	return server, nil
}

// GetServerByNameSuffix is the third resolution step used by
// getServerDetails when neither an ID nor a slug match.
func (s *Store) GetServerByNameSuffix(suffix string) (*Server, error) {
	server, err := s.bolt.getServerByNameSuffix(suffix)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, &mcferrors.ErrNotFound{Key: suffix}
	}
	return server, nil
}

// ListRecent returns up to limit Server rows ordered by UpdatedAt
// descending (nulls last), tie-broken by ID ascending.
func (s *Store) ListRecent(limit int) ([]Server, error) {
	return s.bolt.listRecent(limit)
}

// ListAll returns every Server row, unordered. Used by category listing
// and full reindex.
func (s *Store) ListAll() ([]Server, error) {
	return s.bolt.listAll()
}

// SearchFullText runs sanitizedQuery through the Bleve index, applies
// filters as an AND conjunction, re-fetches the matching rows from bbolt,
// and returns them ordered by rank descending, tie-broken by
// UpdatedAt DESC NULLS LAST, ID ASC to match ListRecent's determinism.
func (s *Store) SearchFullText(sanitizedQuery string, limit int, filters Filters) ([]SearchHit, error) {
	if sanitizedQuery == "" {
		return nil, &mcferrors.ErrInvalidInput{Field: "query", Reason: "empty query; use ListRecent instead"}
	}
	ftHits, err := s.bleve.search(sanitizedQuery, limit, filters)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(ftHits))
	for _, h := range ftHits {
		server, err := s.bolt.getServer(h.ID)
		if err != nil || server == nil {
			continue
		}
		hits = append(hits, SearchHit{Server: *server, Rank: h.Score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Rank != hits[j].Rank {
			return hits[i].Rank > hits[j].Rank
		}
		ui, uj := hits[i].Server.UpdatedAt, hits[j].Server.UpdatedAt
		switch {
		case ui == nil && uj == nil:
			return hits[i].Server.ID < hits[j].Server.ID
		case ui == nil:
			return false
		case uj == nil:
			return true
		case !ui.Equal(*uj):
			return ui.After(*uj)
		default:
			return hits[i].Server.ID < hits[j].Server.ID
		}
	})

	return hits, nil
}

// GetSyncLog returns the most recent sync outcome for source, or nil if it
// has never been synced.
func (s *Store) GetSyncLog(source Source) (*SyncLog, error) {
	return s.bolt.getSyncLog(source)
}

// ListSyncLogs returns the sync log row for every source that has ever
// completed a sync, used by the diagnostic sync-status operation.
func (s *Store) ListSyncLogs() ([]SyncLog, error) {
	return s.bolt.listSyncLogs()
}

// UpdateSyncLog records the outcome of a completed sync run for source.
func (s *Store) UpdateSyncLog(source Source, count int, status, errMsg string) error {
	return s.bolt.updateSyncLog(source, count, status, errMsg)
}

// Backup writes a consistent snapshot of the bbolt database to destPath.
// The Bleve index is derived and is not included; reindexAll rebuilds it
// from a restored backup on next Open.
func (s *Store) Backup(destPath string) error {
	return s.bolt.backup(destPath)
}

// Count returns the number of Server rows currently stored.
func (s *Store) Count() (int, error) {
	return s.bolt.count()
}
