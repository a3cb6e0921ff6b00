package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	chiTransport "github.com/kailas-cloud/syncdex/internal/transport/chi"
	gen "github.com/kailas-cloud/syncdex/internal/transport/generated"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	query string // JSON clause
	sort  string // "field:dir,..." or JSON
	aggs  string // JSON object of named aggregations
	from  int
	size  int
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var so searchOptions

	cmd := &cobra.Command{
		Use:   "search <collection>",
		Short: "Search the index of a collection",
		Long: `Run a structured search against the index of a declared collection and
print the projected result as JSON.

Examples:
  syncdex search Bond
  syncdex search Bond --query '{"match":{"name":{"query":"comersial","fuzziness":2}}}'
  syncdex search Bond --query '{"range":{"price":{"gte":20000,"lte":30000}}}' --sort price:desc
  syncdex search Bond --aggs '{"by_type":{"terms":{"field":"type"}}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := so.request()
			if err != nil {
				return err
			}
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := newApp(cmd.Context(), cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.Background()) }()

			return runSearch(cmd.Context(), a, args[0], body, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&so.query, "query", "q", "", "Query clause as JSON (default: match_all)")
	cmd.Flags().StringVarP(&so.sort, "sort", "s", "", `Sort as "field:dir,..." or JSON`)
	cmd.Flags().StringVar(&so.aggs, "aggs", "", "Aggregations as a JSON object")
	cmd.Flags().IntVar(&so.from, "from", 0, "Number of hits to skip")
	cmd.Flags().IntVarP(&so.size, "size", "n", 10, "Maximum number of hits")
	return cmd
}

// request renders the flags as the body the HTTP API accepts.
func (o searchOptions) request() (gen.SearchRequest, error) {
	from, size := o.from, o.size
	body := gen.SearchRequest{From: &from, Size: &size}
	if o.query != "" {
		if !json.Valid([]byte(o.query)) {
			return body, fmt.Errorf("--query is not valid JSON")
		}
		body.Query = json.RawMessage(o.query)
	}
	if s := strings.TrimSpace(o.sort); s != "" {
		if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") || strings.HasPrefix(s, `"`) {
			body.Sort = json.RawMessage(s)
		} else {
			raw, err := json.Marshal(s)
			if err != nil {
				return body, err
			}
			body.Sort = raw
		}
	}
	if o.aggs != "" {
		if !json.Valid([]byte(o.aggs)) {
			return body, fmt.Errorf("--aggs is not valid JSON")
		}
		body.Aggs = json.RawMessage(o.aggs)
	}
	return body, nil
}

func runSearch(ctx context.Context, a *app, collection string, body gen.SearchRequest, out io.Writer) error {
	req, err := chiTransport.ParseSearchRequest(body)
	if err != nil {
		return err
	}
	res, err := a.search.Search(ctx, collection, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(chiTransport.NewSearchResponse(res))
}
