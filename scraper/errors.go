package scraper

import "fmt"

// TaskCreationError means the capture API rejected the task submission.
type TaskCreationError struct {
	StatusCode int
	Body       string
}

func (e *TaskCreationError) Error() string {
	return fmt.Sprintf("capture task creation failed %d: %s", e.StatusCode, e.Body)
}

// TaskFailedError means the capture task reached a terminal failed or
// cancelled state on the remote side.
type TaskFailedError struct {
	Message string
}

func (e *TaskFailedError) Error() string {
	return "capture task failed: " + e.Message
}

// TaskTimeoutError means the task never reached a terminal state within
// the polling budget.
type TaskTimeoutError struct {
	Attempts int
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("capture task timed out after %d polls", e.Attempts)
}

// DealerNotScrapableError means a run could not start for configuration
// reasons: dealer missing, inactive, or scraping disabled.
type DealerNotScrapableError struct {
	DealerID int64
	Reason   string
}

func (e *DealerNotScrapableError) Error() string {
	return fmt.Sprintf("dealer %d not scrapable: %s", e.DealerID, e.Reason)
}
