package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mcpfinder/mcpfinder/internal/mcferrors"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const dbFileName = "data.db"

// boltDB wraps the bbolt handle and owns bucket creation and schema
// versioning.
type boltDB struct {
	db     *bbolt.DB
	logger *zap.SugaredLogger
}

func openBolt(dataDir string, logger *zap.SugaredLogger) (*boltDB, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, &mcferrors.ErrStoreUnavailable{Op: "mkdir", Err: err}
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	db, err := bbolt.Open(dbPath, 0o644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, &mcferrors.ErrStoreUnavailable{Op: "open", Err: err}
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{ServersBucket, SyncLogBucket, MetaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket([]byte(MetaBucket))
		if meta.Get([]byte(SchemaVersionKey)) == nil {
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, CurrentSchemaVersion)
			if err := meta.Put([]byte(SchemaVersionKey), buf); err != nil {
				return fmt.Errorf("write schema version: %w", err)
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, &mcferrors.ErrStoreUnavailable{Op: "init-schema", Err: err}
	}

	return &boltDB{db: db, logger: logger}, nil
}

func (b *boltDB) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltDB) schemaVersion() (uint64, error) {
	var version uint64
	err := b.db.View(func(tx *bbolt.Tx) error {
		buf := tx.Bucket([]byte(MetaBucket)).Get([]byte(SchemaVersionKey))
		if buf == nil {
			return nil
		}
		version = binary.BigEndian.Uint64(buf)
		return nil
	})
	return version, err
}

// upsertServers writes every row keyed by ID in a single transaction,
// merging Sources monotonically with whatever row already exists: once a
// source has seen a server, it stays attributed.
func (b *boltDB) upsertServers(rows []Server) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(ServersBucket))
		seen := make(map[string]bool, len(rows))

		for i := range rows {
			row := rows[i]
			if seen[row.ID] {
				return &mcferrors.ErrConflict{ID: row.ID}
			}
			seen[row.ID] = true

			if existing := bucket.Get([]byte(row.ID)); existing != nil {
				var prev Server
				if err := prev.UnmarshalBinary(existing); err == nil {
					row.Sources = unionSources(prev.Sources, row.Sources)
				}
			}

			data, err := row.MarshalBinary()
			if err != nil {
				return fmt.Errorf("marshal server %s: %w", row.ID, err)
			}
			if err := bucket.Put([]byte(row.ID), data); err != nil {
				return fmt.Errorf("put server %s: %w", row.ID, err)
			}
			rows[i] = row
		}
		return nil
	})
}

func unionSources(a, b []Source) []Source {
	set := make(map[Source]bool, len(a)+len(b))
	var out []Source
	for _, s := range a {
		if !set[s] {
			set[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !set[s] {
			set[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (b *boltDB) getServer(id string) (*Server, error) {
	var server Server
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(ServersBucket)).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return server.UnmarshalBinary(data)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &server, nil
}

func (b *boltDB) getServerBySlug(slug string) (*Server, error) {
	var found *Server
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(ServersBucket)).ForEach(func(_, v []byte) error {
			var server Server
			if err := server.UnmarshalBinary(v); err != nil {
				return nil
			}
			if server.Slug == slug {
				found = &server
				return nil // bbolt ForEach has no early-exit; keep scanning, last match wins is fine since slugs are unique in practice
			}
			return nil
		})
	})
	return found, err
}

// getServerByNameSuffix returns the first row whose Name ends with suffix,
// used by getServerDetails' third resolution step.
func (b *boltDB) getServerByNameSuffix(suffix string) (*Server, error) {
	var found *Server
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(ServersBucket)).ForEach(func(_, v []byte) error {
			if found != nil {
				return nil
			}
			var server Server
			if err := server.UnmarshalBinary(v); err != nil {
				return nil
			}
			if hasSuffixFold(server.Name, suffix) {
				found = &server
			}
			return nil
		})
	})
	return found, err
}

func hasSuffixFold(name, suffix string) bool {
	if len(suffix) > len(name) {
		return false
	}
	return equalFold(name[len(name)-len(suffix):], suffix)
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func (b *boltDB) listAll() ([]Server, error) {
	var servers []Server
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(ServersBucket)).ForEach(func(_, v []byte) error {
			var server Server
			if err := server.UnmarshalBinary(v); err != nil {
				return nil
			}
			servers = append(servers, server)
			return nil
		})
	})
	return servers, err
}

func (b *boltDB) listRecent(limit int) ([]Server, error) {
	servers, err := b.listAll()
	if err != nil {
		return nil, err
	}

	sort.Slice(servers, func(i, j int) bool {
		ui, uj := servers[i].UpdatedAt, servers[j].UpdatedAt
		switch {
		case ui == nil && uj == nil:
			return servers[i].ID < servers[j].ID
		case ui == nil:
			return false
		case uj == nil:
			return true
		case !ui.Equal(*uj):
			return ui.After(*uj)
		default:
			return servers[i].ID < servers[j].ID
		}
	})

	if limit > 0 && len(servers) > limit {
		servers = servers[:limit]
	}
	return servers, nil
}

func (b *boltDB) getSyncLog(source Source) (*SyncLog, error) {
	var log SyncLog
	found := false
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(SyncLogBucket)).Get([]byte(source))
		if data == nil {
			return nil
		}
		found = true
		return log.UnmarshalBinary(data)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &log, nil
}

func (b *boltDB) updateSyncLog(source Source, count int, status, errMsg string) error {
	log := SyncLog{
		Source:       source,
		LastSyncedAt: time.Now().UTC(),
		ServerCount:  count,
		Status:       status,
		Error:        errMsg,
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := log.MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket([]byte(SyncLogBucket)).Put([]byte(source), data)
	})
}

func (b *boltDB) listSyncLogs() ([]SyncLog, error) {
	var logs []SyncLog
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(SyncLogBucket)).ForEach(func(_, v []byte) error {
			var log SyncLog
			if err := log.UnmarshalBinary(v); err != nil {
				return nil
			}
			logs = append(logs, log)
			return nil
		})
	})
	return logs, err
}

func (b *boltDB) backup(destPath string) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(destPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		return err
	})
}

func (b *boltDB) count() (int, error) {
	var n int
	err := b.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(ServersBucket)).Stats().KeyN
		return nil
	})
	return n, err
}
