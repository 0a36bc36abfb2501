// Package snapshot caches per-station residual results between runs. Parsing
// and regressing a season of position files dwarfs the rest of the pipeline,
// so results are keyed by everything that feeds them and reused as long as
// the parameters hold still.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/glaciodyn/stickslip/internal/pick"
)

// formatVersion invalidates cached results when the serialized layout
// changes.
const formatVersion = 1

// Store is a directory of cached station results.
type Store struct {
	dir string
	log *zap.SugaredLogger
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string, logger *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{dir: dir, log: logger}, nil
}

// Key derives the cache key for one station's residual result from every
// parameter that shapes it. Years are taken in configured order.
func Key(station string, years []int, interval, window, slide, maxGap int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d;station=%s;years=", formatVersion, station)
	for i, year := range years {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(year))
	}
	fmt.Fprintf(&b, ";interval=%d;window=%d;slide=%d;maxgap=%d",
		interval, window, slide, maxGap)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:16]
}

// Load returns the cached result for the station and key. Any failure to
// read or decode reads as a miss so the caller recomputes.
func (s *Store) Load(station, key string) (*pick.StationResult, bool) {
	f, err := os.Open(s.path(station, key))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var result pick.StationResult
	if err := msgpack.NewDecoder(f).Decode(&result); err != nil {
		s.log.Warnf("discarding unreadable cache entry for %s: %v", station, err)
		return nil, false
	}
	return &result, true
}

// Save writes the result under the station and key.
func (s *Store) Save(station, key string, result *pick.StationResult) error {
	f, err := os.Create(s.path(station, key))
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	if err := msgpack.NewEncoder(f).Encode(result); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return f.Close()
}

func (s *Store) path(station, key string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.msgpack", station, key))
}
