package observability

// NoOpObserver discards every notification. Components built without a
// metrics collector fall back to it.
type NoOpObserver struct{}

func (n *NoOpObserver) ObserveOperation(OperationContext) {}

// NewNoOpObserver returns an Observer that discards every notification.
func NewNoOpObserver() Observer {
	return &NoOpObserver{}
}
