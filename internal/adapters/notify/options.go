package notify

// Option applies a configuration option to the InMemoryBus.
type Option func(*InMemoryBus)

// WithSubscriberQueueSize bounds each subscriber's signal queue. Oldest
// signals are dropped on overflow.
func WithSubscriberQueueSize(size int) Option {
	return func(b *InMemoryBus) {
		if size > 0 {
			b.queueSize = size
		}
	}
}
