// Package integration contains the storefront integration bounded context.
// It keeps the ERP catalog and order state consistent with a hosted
// e-commerce storefront.
//
// Key concepts:
//   - EntityMapping: local id to remote id correspondence plus sync state
//   - Settings: the explicit configuration value threaded through every sync
//   - ProductPayload: the storefront representation produced by the transform layer
//   - AuditLogEntry: immutable record of one sync attempt or inbound event
//   - StorefrontClient: port for the storefront REST API
//   - RetryPolicy: decides whether a failed attempt is retried and when
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
