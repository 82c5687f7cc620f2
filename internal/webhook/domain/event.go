package domain

// Domain events that can be subscribed to.
const (
	EventProductCreated  = "product.created"
	EventProductUpdated  = "product.updated"
	EventProductDeleted  = "product.deleted"
	EventImportCompleted = "import.completed"
)

// TaskKindDispatch is the queue kind consumed by the dispatcher.
const TaskKindDispatch = "webhook.dispatch"

// DispatchEvent is the transient value enqueued per triggering
// occurrence. The delivery timestamp is stamped at dispatch time.
type DispatchEvent struct {
	Event      string `json:"event"`
	ResourceID string `json:"resource_id"`
}

// ValidEvent reports whether s names a known event type.
func ValidEvent(s string) bool {
	switch s {
	case EventProductCreated, EventProductUpdated, EventProductDeleted, EventImportCompleted:
		return true
	default:
		return false
	}
}
