package decode

// Stats holds the aggregate counters accumulated during a single decode
// pass. The engine mutates it during traversal; once Run returns it is
// read-only to the caller.
type Stats struct {
	TypeCounts      map[string]int `json:"type_counts"`
	MaxDepth        int            `json:"max_depth"`
	IndefiniteCount int            `json:"indefinite_count"`
	BytesConsumed   int            `json:"bytes_consumed"`
}

func newStats() *Stats {
	return &Stats{TypeCounts: make(map[string]int)}
}

// TotalNodes returns the sum of all per-type counts.
func (s *Stats) TotalNodes() int {
	total := 0
	for _, c := range s.TypeCounts {
		total += c
	}
	return total
}
