// Package syncdex keeps a search index consistent with a document store and
// searches it with typed results.
//
// The store reports its lifecycle events (created, updated, removed, bulk
// saved); syncdex serializes each document through the model's mapping and
// drives the index mutation to a terminal state, retrying transient engine
// failures with exponential backoff. Every event yields a Ticket that
// resolves when the operation succeeded or failed for good.
//
//	type Bond struct {
//	    ID    string `syncdex:"_id,id"`
//	    Name  string `syncdex:"name,text,keyword"`
//	    Type  string `syncdex:"type,keyword"`
//	    Price int    `syncdex:"price"`
//	}
//
//	client, _ := syncdex.New(syncdex.WithElastic("http://localhost:9200", "", ""))
//	defer client.Close(ctx)
//
//	bonds, _ := syncdex.Register[Bond](client, "Bond")
//	_ = bonds.Ensure(ctx)
//
//	tk, _ := bonds.Created(ctx, Bond{ID: "b-1", Name: "Bail", Type: "A", Price: 10000})
//	_, _ = bonds.WaitIndexed(ctx, tk)
//
//	res, _ := bonds.Query(syncdex.Range("price", 20000, 30000)).
//	    Sort("price:desc").
//	    Agg("by_type", syncdex.Terms("type", 10)).
//	    Do(ctx)
package syncdex
