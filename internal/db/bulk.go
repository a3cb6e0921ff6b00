package db

// BulkAction is the kind of a single bulk operation.
type BulkAction string

// Bulk action constants.
const (
	BulkIndex  BulkAction = "index"
	BulkDelete BulkAction = "delete"
)

// BulkOp is one operation in a bulk request.
type BulkOp struct {
	Action  BulkAction
	ID      string
	Payload map[string]any // nil for deletes
}

// BulkItemResult is the engine outcome of one BulkOp.
type BulkItemResult struct {
	ID     string
	Status int
	Err    error
}

// OK reports whether the item was applied.
func (r BulkItemResult) OK() bool { return r.Err == nil }
