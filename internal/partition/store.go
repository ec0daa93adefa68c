package partition

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/listing-reconcile/internal/normalize"
)

// DefaultCacheSize is the number of partitions kept in memory.
const DefaultCacheSize = 15

// Record is a canonical business record of one partition.
type Record struct {
	ID             uuid.UUID
	Name           string
	NormalizedName string
	Phone          string
	PostalCode     string
	City           string
	NormalizedCity string
	Partition      string
	Active         bool
}

// HasPhone reports whether the record already holds a phone number.
func (r *Record) HasPhone() bool {
	return strings.TrimSpace(r.Phone) != ""
}

// Loader fetches the active records of one partition from the datastore.
type Loader interface {
	ActiveByPartition(ctx context.Context, code string) ([]Record, error)
}

// Store loads partitions on first access and keeps at most size of them,
// evicting the oldest inserted partition first.
type Store struct {
	loader    Loader
	cache     *lru.Cache[string, []Record]
	logger    *zap.Logger
	loads     atomic.Int64
	evictions atomic.Int64
}

// NewStore creates a partition store over loader.
func NewStore(loader Loader, size int, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{loader: loader, logger: logger}

	cache, err := lru.NewWithEvict(size, func(code string, records []Record) {
		s.evictions.Add(1)
		s.logger.Debug("evicted partition from cache",
			zap.String("partition", code), zap.Int("records", len(records)))
	})
	if err != nil {
		return nil, fmt.Errorf("create partition cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Load returns the active records of partition code, normalized.
//
// Lookups use Peek so that hits never refresh an entry: eviction order is
// insertion order. Failed loads are not cached and will be retried on the
// next access.
func (s *Store) Load(ctx context.Context, code string) ([]Record, error) {
	if records, ok := s.cache.Peek(code); ok {
		return records, nil
	}

	rows, err := s.loader.ActiveByPartition(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("load partition %s: %w", code, err)
	}
	s.loads.Add(1)

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		if !r.Active {
			continue
		}
		r.NormalizedName = normalize.Name(r.Name)
		r.NormalizedCity = normalize.City(r.City)
		if r.Partition == "" {
			r.Partition = code
		}
		records = append(records, r)
	}

	s.cache.Add(code, records)
	return records, nil
}

// Len returns the number of cached partitions.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Loads returns how many partitions were fetched from the datastore.
func (s *Store) Loads() int64 {
	return s.loads.Load()
}

// Evictions returns how many partitions were evicted from the cache.
func (s *Store) Evictions() int64 {
	return s.evictions.Load()
}

// Search returns up to limit records whose normalized name contains term,
// in partition order.
func Search(records []Record, term string, limit int) []*Record {
	var out []*Record
	for i := range records {
		if strings.Contains(records[i].NormalizedName, term) {
			out = append(out, &records[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}
