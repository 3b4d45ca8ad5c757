package localdb

import (
	"encoding/json/v2"
	"fmt"
	"sort"
	"time"
)

// PendingDelete is a remote delete that failed and awaits replay. The item is
// already gone locally; only the server still has it.
type PendingDelete struct {
	ItemID     string    `json:"itemId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	Attempts   int       `json:"attempts"`
}

func pendingDeleteKey(p PendingDelete) string {
	return fmt.Sprintf("%s%s:%d", pendingDeletePrefix, p.ItemID, p.EnqueuedAt.UnixNano())
}

// AppendPendingDelete adds an entry to the durable delete queue. Each failed
// operation gets its own record keyed by id and enqueue time; there is no
// shared blob to re-serialize.
func (d *DB) AppendPendingDelete(p PendingDelete) {
	Set(d, pendingDeleteKey(p), p)
}

// RemovePendingDelete drops a replayed entry from the queue.
func (d *DB) RemovePendingDelete(p PendingDelete) {
	d.Remove(pendingDeleteKey(p))
}

// PendingDeletes returns the queued entries in enqueue order.
func (d *DB) PendingDeletes() []PendingDelete {
	var out []PendingDelete
	d.listPrefix(pendingDeletePrefix, func(key string, val []byte) {
		var p PendingDelete
		if err := json.Unmarshal(val, &p); err != nil {
			d.logger.Warn("dropping unreadable pending delete", "key", key, "error", err)
			return
		}
		out = append(out, p)
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}
