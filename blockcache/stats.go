package blockcache

// Stats is a point-in-time view of a cache.
type Stats struct {
	Capacity  int
	Resident  int
	Hits      int64
	Misses    int64
	Evictions int64
	// WriteBacks counts blocks written to the raster by eviction, Flush or
	// Close.
	WriteBacks int64
	// PrefetchHits counts misses served from a read-ahead buffer (Direct
	// only).
	PrefetchHits int64
}

// HitRatio returns hits / (hits + misses), or 0 before the first request.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
