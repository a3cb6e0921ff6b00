package indexsync

import "fmt"

// BulkError reports a bulk save with documents that failed for good.
// It unwraps to the first such failure.
type BulkError struct {
	Failed int
	Total  int
	First  error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk: %d of %d documents failed: %v", e.Failed, e.Total, e.First)
}

func (e *BulkError) Unwrap() error { return e.First }
