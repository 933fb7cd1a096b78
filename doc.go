// Package hirograph is a typed Go client for the HIRO graph automation
// platform's HTTP and WebSocket APIs.
//
// A Connection is built from one configuration profile and bundles:
//   - token lifecycle management (password grant with single-flight
//     refresh, fixed tokens, environment-sourced tokens)
//   - versioned API path discovery from the platform's version document
//   - authenticated REST clients for the graph, auth, and app APIs
//   - WebSocket sessions for the action and event protocols
//
// Every component on a connection shares one token handler, so concurrent
// callers across REST and WebSocket never trigger duplicate logins or
// refresh storms.
//
//	cfg, err := config.Load("hirograph.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	conn, err := hirograph.Connect(cfg, "", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	v, err := conn.Graph.GetVertex(ctx, "ck1234_node")
package hirograph
