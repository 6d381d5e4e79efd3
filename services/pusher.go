// services/pusher.go - real-time delivery contract used after commits
package services

// Pusher delivers events to connected clients. Services call it only after
// the mutation it describes has been committed.
type Pusher interface {
	Emit(event string, payload interface{})
	EmitToUser(userID, event string, payload interface{})
}

// Event names pushed to clients.
const (
	EventNotificationNew  = "notification:new"
	EventTaskCreated      = "task:created"
	EventTaskUpdated      = "task:updated"
	EventTaskDeleted      = "task:deleted"
	EventTasksBulkUpdated = "tasks:bulk_updated"
)

type nopPusher struct{}

func (nopPusher) Emit(string, interface{})               {}
func (nopPusher) EmitToUser(string, string, interface{}) {}

func pusherOrNop(p Pusher) Pusher {
	if p == nil {
		return nopPusher{}
	}
	return p
}
