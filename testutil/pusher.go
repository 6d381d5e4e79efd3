package testutil

import "sync"

type PushedEvent struct {
	UserID  string
	Event   string
	Payload interface{}
}

// Pusher records real-time events instead of delivering them.
type Pusher struct {
	mu        sync.Mutex
	broadcast []PushedEvent
	direct    []PushedEvent
}

func (p *Pusher) Emit(event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcast = append(p.broadcast, PushedEvent{Event: event, Payload: payload})
}

func (p *Pusher) EmitToUser(userID, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.direct = append(p.direct, PushedEvent{UserID: userID, Event: event, Payload: payload})
}

// Broadcasts returns the broadcast events named event.
func (p *Pusher) Broadcasts(event string) []PushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PushedEvent
	for _, e := range p.broadcast {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// ToUser returns the events delivered to userID.
func (p *Pusher) ToUser(userID string) []PushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PushedEvent
	for _, e := range p.direct {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
