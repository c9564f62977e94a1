package workspace

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"rbls/internal/config"
	"rbls/internal/engine"
	"rbls/internal/logging"
	"rbls/internal/storage"
)

// Indexer bulk-indexes a workspace into an engine, reusing snapshots
// for files whose content hash is unchanged.
type Indexer struct {
	engine   *engine.Engine
	snapshot *storage.Snapshot // nil disables persistence
	cfg      config.IndexConfig
	logger   *logging.Logger
}

// NewIndexer creates an indexer. snapshot may be nil.
func NewIndexer(eng *engine.Engine, snapshot *storage.Snapshot, cfg config.IndexConfig, logger *logging.Logger) *Indexer {
	return &Indexer{engine: eng, snapshot: snapshot, cfg: cfg, logger: logger}
}

// Result summarizes one bulk indexing pass.
type Result struct {
	FilesParsed     int           `json:"filesParsed"`
	FilesReused     int           `json:"filesReused"`
	FilesFailed     int           `json:"filesFailed"`
	SnapshotsPruned int           `json:"snapshotsPruned"`
	Entries         int           `json:"entries"`
	Duration        time.Duration `json:"duration"`
}

// IndexWorkspace discovers Ruby files under root and indexes them with a
// worker pool. Files with an up-to-date snapshot load from it instead of
// parsing. Per-file failures are logged and skipped; only discovery and
// storage failures abort the pass.
func (ix *Indexer) IndexWorkspace(ctx context.Context, root string) (*Result, error) {
	start := time.Now()

	files, err := Discover(root, ix.cfg)
	if err != nil {
		return nil, err
	}

	workers := ix.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(files) && len(files) > 0 {
		workers = len(files)
	}

	var (
		mu  sync.Mutex
		res Result
		wg  sync.WaitGroup
	)
	jobs := make(chan string)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fileID := range jobs {
				_, reused, err := ix.indexFile(ctx, root, fileID)
				mu.Lock()
				switch {
				case err != nil:
					res.FilesFailed++
				case reused:
					res.FilesReused++
				default:
					res.FilesParsed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, f := range files {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- f:
		}
	}
	close(jobs)
	wg.Wait()

	if ix.snapshot != nil {
		keep := make(map[string]bool, len(files))
		for _, f := range files {
			keep[f] = true
		}
		pruned, err := ix.snapshot.Prune(keep)
		if err != nil {
			return nil, err
		}
		res.SnapshotsPruned = pruned
	}

	stats := ix.engine.Stats()
	res.Entries = stats.Entries
	res.Duration = time.Since(start)
	ix.logger.Info("workspace indexed", map[string]interface{}{
		"files":    len(files),
		"parsed":   res.FilesParsed,
		"reused":   res.FilesReused,
		"failed":   res.FilesFailed,
		"entries":  res.Entries,
		"duration": res.Duration.String(),
	})
	return &res, nil
}

// indexFile indexes one file, preferring the snapshot when the hash
// matches. Returns the entry count and whether the snapshot was reused.
func (ix *Indexer) indexFile(ctx context.Context, root, fileID string) (int, bool, error) {
	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(fileID)))
	if err != nil {
		ix.logger.Warn("failed to read source file", map[string]interface{}{
			"file":  fileID,
			"error": err.Error(),
		})
		return 0, false, err
	}

	hash := storage.HashBytes(src)

	if ix.snapshot != nil {
		stored, err := ix.snapshot.Hash(fileID)
		if err == nil && stored == hash {
			rec, err := ix.snapshot.Load(fileID)
			if err == nil && rec != nil {
				ix.engine.LoadEntries(fileID, rec.Entries)
				return len(rec.Entries), true, nil
			}
			// A corrupt snapshot falls through to a fresh parse.
			ix.logger.Warn("snapshot load failed, reparsing", map[string]interface{}{
				"file": fileID,
			})
		}
	}

	n, err := ix.engine.IndexSource(ctx, fileID, src)
	if err != nil {
		ix.logger.Warn("failed to index file", map[string]interface{}{
			"file":  fileID,
			"error": err.Error(),
		})
		return 0, false, err
	}

	if ix.snapshot != nil {
		if err := ix.snapshot.Save(fileID, hash, ix.engine.EntriesForFile(fileID)); err != nil {
			ix.logger.Warn("failed to persist snapshot", map[string]interface{}{
				"file":  fileID,
				"error": err.Error(),
			})
		}
	}
	return n, false, nil
}

// LoadFromSnapshot restores the whole index from storage without
// touching source files. Used by builds without a parser.
func (ix *Indexer) LoadFromSnapshot() (int, error) {
	if ix.snapshot == nil {
		return 0, nil
	}
	files := 0
	err := ix.snapshot.LoadAll(func(rec *storage.FileRecord) error {
		ix.engine.LoadEntries(rec.FileID, rec.Entries)
		files++
		return nil
	})
	return files, err
}

// IndexFile indexes a single file by workspace-relative path, updating
// the snapshot. Used by the language server on save.
func (ix *Indexer) IndexFile(ctx context.Context, root, fileID string) (int, error) {
	n, _, err := ix.indexFile(ctx, root, fileID)
	return n, err
}

// RemoveFile drops a deleted file from the index and snapshot.
func (ix *Indexer) RemoveFile(fileID string) error {
	ix.engine.DeleteFile(fileID)
	if ix.snapshot != nil {
		return ix.snapshot.Delete(fileID)
	}
	return nil
}
