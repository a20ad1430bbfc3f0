package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/skypro1111/binspect/internal/decode"
)

// Result is the complete output of one decode call: the root node plus the
// statistics gathered during the pass.
type Result struct {
	Root  *decode.Node
	Stats *decode.Stats
}

// resultJSON mirrors the node shape with the stats object attached to the
// root: {"type", "range", "value", "stats"}.
type resultJSON struct {
	Type       string         `json:"type"`
	Range      [2]int         `json:"range"`
	Value      any            `json:"value"`
	Indefinite bool           `json:"indefinite,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	Stats      *decode.Stats  `json:"stats"`
}

// MarshalJSON serializes the result envelope.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Type:       r.Root.Type,
		Range:      [2]int{r.Root.Start, r.Root.End},
		Value:      r.Root.JSONValue(),
		Indefinite: r.Root.Indefinite,
		Meta:       r.Root.Meta,
		Stats:      r.Stats,
	})
}

// Encode writes the result as JSON to w, indented when pretty is set.
func Encode(w io.Writer, r *Result, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(r)
}

// Summary renders the statistics as aligned text: per-type counts sorted by
// descending frequency (ties broken by name), nesting depth, indefinite
// constructs, and bytes consumed against the buffer length. It always
// succeeds for a valid Stats.
func Summary(stats *decode.Stats, bufLen int) string {
	type typeCount struct {
		name  string
		count int
	}
	counts := make([]typeCount, 0, len(stats.TypeCounts))
	for name, count := range stats.TypeCounts {
		counts = append(counts, typeCount{name, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].name < counts[j].name
	})

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "TYPE\tCOUNT")
	for _, tc := range counts {
		fmt.Fprintf(w, "%s\t%d\n", tc.name, tc.count)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "nodes:\t%d\n", stats.TotalNodes())
	fmt.Fprintf(w, "max depth:\t%d\n", stats.MaxDepth)
	fmt.Fprintf(w, "indefinite constructs:\t%d\n", stats.IndefiniteCount)
	fmt.Fprintf(w, "bytes consumed:\t%d of %d\n", stats.BytesConsumed, bufLen)
	if trailing := bufLen - stats.BytesConsumed; trailing > 0 {
		fmt.Fprintf(w, "trailing bytes:\t%d\n", trailing)
	}

	w.Flush()
	return buf.String()
}
