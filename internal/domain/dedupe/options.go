package dedupe

const defaultCapacity = 4

type config struct {
	capacity int
}

// Option applies a configuration option to NewOrdered.
type Option func(*config)

// WithCapacity pre-sizes the set for n distinct values.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.capacity = n
		}
	}
}
