package stream

// Option applies a configuration option to the InMemoryStream.
type Option func(*InMemoryStream)

// WithCapacity sets the maximum number of buffered change events.
func WithCapacity(capacity int) Option {
	return func(s *InMemoryStream) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}
