// Package asset resolves timeline file references into local encoder-readable
// files.
package asset

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/compiler"
	"github.com/reelcraft/api/internal/model"
)

// ErrUnresolved means a file reference could not be located after exhausting
// every fallback location.
var ErrUnresolved = errors.New("unresolved asset")

// Prober inspects a local media file. Kept as a function type so tests can
// run without ffprobe on PATH.
type Prober func(ctx context.Context, localPath string) (ProbeInfo, error)

// Materializer downloads referenced media into a per-job work directory and
// probes it. Items that cannot be resolved are skipped with a warning, never
// substituted with a placeholder asset.
type Materializer struct {
	storage client.StorageClient
	probe   Prober
	log     zerolog.Logger
}

// NewMaterializer creates a materializer using the ffprobe-backed prober.
func NewMaterializer(storage client.StorageClient, log zerolog.Logger) *Materializer {
	return &Materializer{
		storage: storage,
		probe:   ProbeFile,
		log:     log.With().Str("component", "materializer").Logger(),
	}
}

// NewMaterializerWithProber injects a custom prober (tests).
func NewMaterializerWithProber(storage client.StorageClient, probe Prober, log zerolog.Logger) *Materializer {
	return &Materializer{storage: storage, probe: probe, log: log}
}

// Resolve materializes every non-placeholder media item into destDir.
// Downloads run in parallel; the returned map only holds items that resolved.
// Resolution failure of individual items is not an error here — the caller
// applies the skip-not-fail policy.
func (m *Materializer) Resolve(ctx context.Context, destDir, ownerID string, items []model.MediaItem) map[string]compiler.ResolvedAsset {
	resolved := make(map[string]compiler.ResolvedAsset, len(items))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range items {
		item := &items[i]
		if item.IsPlaceholder {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			asset, err := m.resolveOne(ctx, destDir, ownerID, item)
			if err != nil {
				m.log.Warn().
					Str("item", item.ID).
					Str("ref", item.FileReference).
					Err(err).
					Msg("asset skipped")
				return
			}
			mu.Lock()
			resolved[item.ID] = asset
			mu.Unlock()
		}()
	}
	wg.Wait()

	return resolved
}

func (m *Materializer) resolveOne(ctx context.Context, destDir, ownerID string, item *model.MediaItem) (compiler.ResolvedAsset, error) {
	if m.storage == nil {
		return compiler.ResolvedAsset{}, errors.Wrap(ErrUnresolved, "storage not configured")
	}
	localPath := filepath.Join(destDir, item.ID+refExtension(item.FileReference))

	var lastErr error
	found := false
	for _, key := range candidateKeys(ownerID, item.FileReference) {
		if err := m.storage.Download(ctx, key, localPath); err != nil {
			lastErr = err
			continue
		}
		found = true
		break
	}
	if !found {
		return compiler.ResolvedAsset{}, errors.Wrapf(ErrUnresolved, "reference %q: %v", item.FileReference, lastErr)
	}

	asset := compiler.ResolvedAsset{Path: localPath}
	if item.Kind.HasAudio() {
		info, err := m.probe(ctx, localPath)
		if err != nil {
			// A file we cannot probe still renders; it just contributes no
			// audio sub-chain.
			m.log.Warn().Str("item", item.ID).Err(err).Msg("probe failed, treating as silent")
		} else {
			asset.HasAudio = info.HasAudio
		}
	}
	return asset, nil
}

// candidateKeys lists the storage locations tried for a reference, in order.
// The alternate-folder fallback reconciles keys assigned under older naming
// schemes; it papers over an upstream path-naming inconsistency and should
// not grow without fixing that root cause first.
func candidateKeys(ownerID, ref string) []string {
	keys := make([]string, 0, 4)
	if strings.Contains(ref, "/") {
		keys = append(keys, ref)
	}
	base := path.Base(ref)
	keys = append(keys,
		fmt.Sprintf("uploads/%s/%s", ownerID, base),
		fmt.Sprintf("library/%s/%s", ownerID, base),
		fmt.Sprintf("media/%s", base),
	)
	return keys
}

func refExtension(ref string) string {
	ext := path.Ext(ref)
	if ext == "" || len(ext) > 8 {
		return ".bin"
	}
	return ext
}
