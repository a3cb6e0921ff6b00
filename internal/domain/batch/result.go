package batch

// ItemStatus is the outcome of one document in a bulk save.
type ItemStatus string

// Bulk item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the final outcome of one document of a bulk operation,
// reported to the per-document callback.
type Result struct {
	id       string
	status   ItemStatus
	err      error
	attempts int
}

// NewOK creates a successful item result.
func NewOK(id string, attempts int) Result {
	return Result{id: id, status: StatusOK, attempts: attempts}
}

// NewError creates a failed item result.
func NewError(id string, err error, attempts int) Result {
	return Result{id: id, status: StatusError, err: err, attempts: attempts}
}

// ID returns the document identifier.
func (r Result) ID() string { return r.id }

// Status returns the outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the terminal error, nil on success.
func (r Result) Err() error { return r.err }

// Attempts returns how many submissions the item took.
func (r Result) Attempts() int { return r.attempts }

// OK reports whether the item was indexed.
func (r Result) OK() bool { return r.status == StatusOK }

// Summary counts outcomes over a set of results.
func Summary(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
