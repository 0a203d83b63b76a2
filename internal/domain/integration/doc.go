// Package integration defines the port interfaces for the external
// marketplace API following the Ports & Adapters pattern: the interfaces and
// their value objects live in the domain layer, while concrete HTTP adapters
// live under internal/infrastructure/marketplace.
//
// The catalog synchronization engine consumes exactly one port,
// RemoteCatalog, which exposes the marketplace's category tree, per-category
// attribute schemas, and enumerated dictionary values in two languages.
package integration
