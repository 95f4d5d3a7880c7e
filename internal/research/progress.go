package research

import "time"

// etaMS estimates remaining wall time from the average pace of completed
// steps. Zero until at least one step finished; zero again once done.
func etaMS(elapsed time.Duration, completed, total int) int64 {
	if completed <= 0 || completed >= total {
		return 0
	}
	perStep := elapsed.Milliseconds() / int64(completed)
	return perStep * int64(total-completed)
}
