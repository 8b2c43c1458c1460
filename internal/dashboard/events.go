package dashboard

import (
	"time"

	"github.com/efebarandurmaz/roadnet/internal/metrics"
)

// Event types pushed to SSE clients.
const (
	EventConnected       = "connected"
	EventReportRefreshed = "report.refreshed"
	EventRefreshFailed   = "report.failed"
)

// Event is one SSE payload.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RefreshID string    `json:"refresh_id,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter records refresh outcomes in the store and broadcasts them.
type Emitter struct {
	store *Store
	hub   *Hub
}

// NewEmitter creates a new event emitter.
func NewEmitter(store *Store, hub *Hub) *Emitter {
	return &Emitter{store: store, hub: hub}
}

// Refreshed stores the new report and broadcasts its summary.
func (e *Emitter) Refreshed(rec RefreshRecord, snap *metrics.Snapshot, rep *metrics.Report) {
	rec.TotalNodes = rep.Summary.TotalNodes
	e.store.Set(snap, rep, rec.StartedAt.Add(rec.Duration))
	e.store.Record(rec)
	e.hub.Broadcast(&Event{
		Type:      EventReportRefreshed,
		Timestamp: time.Now(),
		RefreshID: rec.ID,
		Data:      rep.Summary,
	})
}

// Failed records a failed refresh; the previous report stays current.
func (e *Emitter) Failed(rec RefreshRecord, err error) {
	rec.Error = err.Error()
	e.store.Record(rec)
	e.hub.Broadcast(&Event{
		Type:      EventRefreshFailed,
		Timestamp: time.Now(),
		RefreshID: rec.ID,
		Data:      map[string]string{"error": rec.Error},
	})
}
