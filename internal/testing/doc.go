// Package testing provides fakes, mocks and fixtures shared by simrun tests.
//
//   - FakeCompute: in-memory provider.ComputeAPI with per-operation failure injection
//   - FakeStorage: in-memory provider.StorageAPI with deterministic signed URLs
//   - MockScheduler, MockNotifier, MockBroadcaster: testify mocks of the
//     simulation collaborators
//   - ProviderFixture: a provider.Cloud wired to both fakes
//
// Usage:
//
//	fx := testing.NewProviderFixture()
//	fx.Compute.FailOn(testing.OpCreateInstance, errors.New("quota exceeded"))
//	_, err := fx.Cloud.Create(ctx, spec)
package testing
