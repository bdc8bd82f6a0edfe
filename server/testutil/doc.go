// Package testutil runs the mira HTTP server on an httptest.Server.
//
//	srv := testutil.NewComponent(testutil.WithEngines(loop))
//	mtest.Start(t, srv)
//
//	var views []engine.View
//	code, err := srv.GetJSON(ctx, "/v1/engines?format=condensed", &views)
package testutil
