// Package avhttpc provides an instrumented HTTP client built from
// composable http.RoundTripper middleware: OpenTelemetry tracing with
// context propagation, retries with exponential backoff, a circuit
// breaker, Prometheus metrics, and bearer-token auth backed by a
// file-persisted credential store.
//
// Build a client from configuration:
//
//	cfg, err := config.Load("client.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client, err := avhttpc.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	resp, err := client.HTTP.Get("https://api.example.com/orders")
//
// Tokens are attached from the credential store; update it after login:
//
//	err = client.Store.Update(ctx, token, userID)
//
// Individual middlewares are available in the transport package for
// callers that assemble their own chain.
package avhttpc
