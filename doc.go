// Package throttlefs implements a rate-limiting facade over a pluggable
// filesystem abstraction.
//
// A Facade wraps an inner FS implementation (local disk, an external
// plugin process, or any other backend satisfying the FS capability
// set) and admits each call against per-(backend, operation-class)
// quotas held in a Registry, using the GCRA algorithm to decide whether
// a call proceeds immediately, waits, or is rejected.
//
// # Quick start
//
// Build a registry, configure a quota, and wrap a backend:
//
//	reg := registry.New()
//	reg.SetRate("s3", opclass.Read, 100, mode.Blocking)
//	reg.SetBurst("s3", opclass.Read, 20)
//
//	host := hostfs.New(reg)
//	host.Register("s3", myInnerFS)
//	fx, _ := host.Wrap("s3")
//
// fx now satisfies facade.FS and can be used anywhere myInnerFS was.
//
// # Configuration
//
// Quotas can be set programmatically against the Registry, loaded from
// a YAML policy file with the config package, or mutated at runtime
// through the admin HTTP and gRPC surfaces.
//
// # Architecture
//
//	caller -> facade.Facade -> registry.Registry (admission decision)
//	                        -> inner facade.FS (disk, plugin, ...)
package throttlefs
