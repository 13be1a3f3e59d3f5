package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/vibe-gtf/internal/mapper"
)

// FileFingerprint identifies a source file by size and modification time.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile fingerprints an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// BaseMapCache manages a gob-serialized base map on disk, usually stored
// next to the GTF it was built from:
//
//	annotation.gtf.basemap.gob       (serialized base map)
//	annotation.gtf.basemap.gob.meta  (source fingerprint and feature)
type BaseMapCache struct {
	path string
}

// NewBaseMapCache creates a cache backed by the given gob file.
func NewBaseMapCache(path string) *BaseMapCache {
	return &BaseMapCache{path: path}
}

// PathFor returns the default cache file for a GTF file.
func PathFor(gtfPath string) string {
	return gtfPath + ".basemap.gob"
}

func (bc *BaseMapCache) gobPath() string {
	return bc.path
}

func (bc *BaseMapCache) metaPath() string {
	return bc.path + ".meta"
}

// Valid checks whether the cached base map was built from the current GTF
// file with the same feature type.
func (bc *BaseMapCache) Valid(gtf FileFingerprint, feature string) bool {
	meta, err := bc.readMeta()
	if err != nil {
		return false
	}

	checks := []struct{ key, val string }{
		{"gtf_size", strconv.FormatInt(gtf.Size, 10)},
		{"gtf_modtime", gtf.ModTime.UTC().Format(time.RFC3339Nano)},
		{"feature", feature},
	}

	for _, c := range checks {
		if meta[c.key] != c.val {
			return false
		}
	}

	// Verify gob file exists
	if _, err := os.Stat(bc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the serialized base map from disk.
func (bc *BaseMapCache) Load() (mapper.BaseMap, error) {
	f, err := os.Open(bc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open base map cache: %w", err)
	}
	defer f.Close()

	var m mapper.BaseMap
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode base map cache: %w", err)
	}
	return m, nil
}

// Write serializes the base map to disk with the source fingerprint.
func (bc *BaseMapCache) Write(m mapper.BaseMap, gtf FileFingerprint, feature string) error {
	f, err := os.Create(bc.gobPath())
	if err != nil {
		return fmt.Errorf("create base map cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(m); err != nil {
		f.Close()
		os.Remove(bc.gobPath())
		return fmt.Errorf("encode base map cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close base map cache: %w", err)
	}

	return bc.writeMeta(gtf, feature)
}

// Clear removes the cached files.
func (bc *BaseMapCache) Clear() {
	os.Remove(bc.gobPath())
	os.Remove(bc.metaPath())
}

func (bc *BaseMapCache) writeMeta(gtf FileFingerprint, feature string) error {
	lines := []string{
		"gtf_size=" + strconv.FormatInt(gtf.Size, 10),
		"gtf_modtime=" + gtf.ModTime.UTC().Format(time.RFC3339Nano),
		"feature=" + feature,
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(bc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (bc *BaseMapCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(bc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
