// Package stack composes the complete Postal installation.
//
// Build is a pure function: it resolves upstream values (database endpoint,
// secret key), renders postal.yml, and returns typed handles for every
// object together with the computed Outputs. Nothing talks to a cluster.
//
// The dependency order is
//
//	namespace -> database -> config secret -> {web, smtp, worker}
//	          -> {services, ingress} -> init job
//
// Phases exposes that order to the apply command, which waits for the
// database workload before creating the init Job.
package stack
