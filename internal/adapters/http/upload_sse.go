package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/eliasbrown99/solicitation-dashboard/internal/core/domain"
)

const sseKeepAlive = 15 * time.Second

// snapshotFeed coalesces workflow snapshots for one slow reader. The reader
// always sees the latest snapshot; intermediate ones may be skipped.
type snapshotFeed struct {
	mu     sync.Mutex
	latest domain.UploadSnapshot
	signal chan struct{}
}

func newSnapshotFeed(initial domain.UploadSnapshot) *snapshotFeed {
	f := &snapshotFeed{latest: initial, signal: make(chan struct{}, 1)}
	f.signal <- struct{}{}
	return f
}

func (f *snapshotFeed) push(snap domain.UploadSnapshot) {
	f.mu.Lock()
	f.latest = snap
	f.mu.Unlock()
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *snapshotFeed) take() domain.UploadSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest
}

// streamUploadEvents re-streams upload snapshots as "data: {json}" events.
func (rt *Router) streamUploadEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported by response writer"})
		return
	}

	feed := newSnapshotFeed(rt.uploads.Snapshot())
	unsubscribe := rt.uploads.Subscribe(feed.push)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-feed.signal:
			if err := writeSnapshotEvent(w, feed.take()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w io.Writer, snap domain.UploadSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
