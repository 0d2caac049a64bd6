// Package storefront contains the Storefront bounded context.
// This context manages the outbound side of the sync pipeline: the port
// interface to the remote commerce platform, the composed payload shapes,
// batch outcomes, tenant sync settings, price conversion and the retryable
// sync task state machine.
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - The concrete REST adapter lives in the infrastructure layer
package storefront
