package businessflow

import "sync"

// runLocks guards against two passes of the same campaign overlapping
// within this process. Scheduled and manual triggers share it.
var runLocks = struct {
	mu   sync.Mutex
	held map[uint]bool
}{held: make(map[uint]bool)}

// acquireRunLock reports whether the campaign's run lock was obtained.
func acquireRunLock(campaignID uint) bool {
	runLocks.mu.Lock()
	defer runLocks.mu.Unlock()

	if runLocks.held[campaignID] {
		return false
	}
	runLocks.held[campaignID] = true
	return true
}

func releaseRunLock(campaignID uint) {
	runLocks.mu.Lock()
	defer runLocks.mu.Unlock()
	delete(runLocks.held, campaignID)
}
