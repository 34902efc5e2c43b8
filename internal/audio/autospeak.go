package audio

import (
	"sync"

	"github.com/google/uuid"
)

// Tracker decides whether a model reply should be spoken automatically.
// Messages already present when the conversation was mounted are never
// auto-spoken, so a restored conversation is not replayed on load. Each new
// model message fires at most once.
type Tracker struct {
	mu       sync.Mutex
	lastSeen uuid.UUID
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Mount records the newest model-authored message present at load time.
func (t *Tracker) Mount(latestModelMessage uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = latestModelMessage
}

// ShouldSpeak reports whether the given model message should be auto-spoken,
// and marks it as seen. It returns true at most once per message id.
func (t *Tracker) ShouldSpeak(messageID uuid.UUID, enabled bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if messageID == uuid.Nil || messageID == t.lastSeen {
		return false
	}
	t.lastSeen = messageID
	return enabled
}

// Reset clears the tracking, used when the conversation is cleared.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = uuid.Nil
}
