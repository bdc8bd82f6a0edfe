// Package testutil holds the lifecycle contract shared by mira's test
// fakes. A TestComponent is a component.Component that can also be reset
// between test cases.
//
//	adapter := dtest.NewFakeAdapter()
//	testutil.Start(t, adapter)
//	adapter.SetRecords(...)
package testutil
