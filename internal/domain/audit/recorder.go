package audit

import (
	"context"
	"sync"
)

// Change is one pending before/after snapshot collected during a request.
// Values are explicit maps provided by the repositories.
type Change struct {
	EntityType string
	EntityID   string
	Action     string
	OldValue   map[string]any
	NewValue   map[string]any
}

// Recorder accumulates entity changes for one request. It travels in the
// context so repositories on either database can record; the flush happens
// once, after the handler, in the application database.
type Recorder struct {
	mu      sync.Mutex
	changes []Change
}

type recorderKey struct{}

// WithRecorder attaches a fresh recorder to the context.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	r := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, r), r
}

// FromContext returns the recorder or nil when auditing is off.
func FromContext(ctx context.Context) *Recorder {
	if r, ok := ctx.Value(recorderKey{}).(*Recorder); ok {
		return r
	}
	return nil
}

// Record appends a change. Safe to call with a nil receiver so callers can
// write `audit.FromContext(ctx).Record(...)` unconditionally.
func (r *Recorder) Record(c Change) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

// Created records an insert snapshot.
func (r *Recorder) Created(entityType, entityID string, newValue map[string]any) {
	r.Record(Change{EntityType: entityType, EntityID: entityID, Action: ActionCreate, NewValue: newValue})
}

// Updated records a before/after snapshot.
func (r *Recorder) Updated(entityType, entityID string, oldValue, newValue map[string]any) {
	r.Record(Change{EntityType: entityType, EntityID: entityID, Action: ActionUpdate, OldValue: oldValue, NewValue: newValue})
}

// Deleted records a removal snapshot.
func (r *Recorder) Deleted(entityType, entityID string, oldValue map[string]any) {
	r.Record(Change{EntityType: entityType, EntityID: entityID, Action: ActionDelete, OldValue: oldValue})
}

// Drain returns and clears the accumulated changes.
func (r *Recorder) Drain() []Change {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.changes
	r.changes = nil
	return out
}
