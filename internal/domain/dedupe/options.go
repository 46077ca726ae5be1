package dedupe

// defaultMaxSize bounds the seen set when no option overrides it.
const defaultMaxSize = 50_000

// Option applies a configuration option to the deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered event ids. Zero or
// negative disables the bound.
func WithMaxSize(n int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = n
	}
}
