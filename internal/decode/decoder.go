package decode

// DefaultMaxDepth is the nesting depth cap applied when no option overrides
// it. The cap is a guard against corrupt or adversarial input driving
// unbounded recursion, not a normal-path limit.
const DefaultMaxDepth = 64

// Grammar is one format's decode rules. Implementations are immutable,
// constructed once at startup and shared process-wide; all per-call state
// lives in the Context.
type Grammar interface {
	// Name identifies the grammar in the registry, CLI and API.
	Name() string
	// Decode consumes the context's cursor and returns the root node.
	Decode(ctx *Context) (*Node, error)
}

// Option configures one decode call.
type Option func(*Context)

// WithMaxDepth overrides the nesting depth cap. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(c *Context) {
		if n >= 1 {
			c.maxDepth = n
		}
	}
}

// Context carries the per-call decode state handed to a grammar: the cursor,
// the statistics being accumulated, and the depth guard. One context serves
// exactly one decode call on one goroutine.
type Context struct {
	cur      *Cursor
	stats    *Stats
	maxDepth int
	depth    int
}

// Cursor returns the call's byte cursor.
func (c *Context) Cursor() *Cursor {
	return c.cur
}

// MaxDepth returns the effective nesting depth cap.
func (c *Context) MaxDepth() int {
	return c.maxDepth
}

// Enter marks the start of a nested element at the given offset. It fails
// with RecursionLimitExceeded when the depth cap is hit. Every Enter must be
// paired with a Leave.
func (c *Context) Enter(offset int) error {
	c.depth++
	if c.depth > c.maxDepth {
		return RecursionLimitAt(offset, c.maxDepth)
	}
	if c.depth > c.stats.MaxDepth {
		c.stats.MaxDepth = c.depth
	}
	return nil
}

// Leave marks the end of the element most recently entered.
func (c *Context) Leave() {
	c.depth--
}

// Node finalizes a decoded element, recording its type in the statistics.
func (c *Context) Node(typ string, start, end int, value any) *Node {
	c.stats.TypeCounts[typ]++
	return &Node{Type: typ, Start: start, End: end, Value: value}
}

// IndefiniteNode finalizes an indefinite-length element, recording both the
// type count and the indefinite-construct count.
func (c *Context) IndefiniteNode(typ string, start, end int, value any) *Node {
	n := c.Node(typ, start, end, value)
	n.Indefinite = true
	c.stats.IndefiniteCount++
	return n
}

// Run decodes buf with the given grammar. It produces exactly one root node
// and one statistics value, or a decode error carrying the failure offset.
// The buffer is borrowed for the duration of the call; the engine retains no
// reference after returning. Decoding is deterministic: the same buffer and
// grammar always yield the same tree and statistics.
func Run(g Grammar, buf []byte, opts ...Option) (*Node, *Stats, error) {
	ctx := &Context{
		cur:      NewCursor(buf),
		stats:    newStats(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(ctx)
	}

	root, err := g.Decode(ctx)
	if err != nil {
		return nil, nil, err
	}

	ctx.stats.BytesConsumed = ctx.cur.Offset()
	return root, ctx.stats, nil
}
