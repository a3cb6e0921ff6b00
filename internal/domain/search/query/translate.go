package query

// Translate renders a request into the engine search body:
// {query, sort, aggs, from, size, track_total_hits}. Sort and aggs are
// omitted when empty.
func Translate(req Request) (map[string]any, error) {
	q := req.query
	if q == nil {
		q = MatchAll{}
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	body := map[string]any{
		"query":            q.Render(),
		"from":             req.from,
		"size":             req.size,
		"track_total_hits": true,
	}
	if req.size == 0 && len(req.aggs) == 0 {
		body["size"] = DefaultSize
	}
	if len(req.sort) > 0 {
		body["sort"] = RenderSort(req.sort)
	}
	if len(req.aggs) > 0 {
		aggs := make(map[string]any, len(req.aggs))
		for name, a := range req.aggs {
			aggs[name] = a.Render()
		}
		body["aggs"] = aggs
	}
	return body, nil
}
