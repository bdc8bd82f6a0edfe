// Package testutil provides an in-memory discovery adapter for tests.
//
//	adapter := testutil.NewFakeAdapter()
//	adapter.SetRecords(discovery.Record{Key: "e1", Addresses: []string{"10.0.0.1"}})
//	loop := discovery.NewLoop(adapter, registry, build, cfg)
//
//	adapter.SetError(errors.New("daemon down")) // next cycle fails
package testutil
