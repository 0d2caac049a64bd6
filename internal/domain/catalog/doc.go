// Package catalog contains the local Catalog bounded context.
// This context mirrors ERP-side catalog state per tenant and is the only
// mutable shared state of the sync pipeline.
//
// Key concepts:
//   - Item: one ERP catalog record (simple, parent or variant), keyed by the
//     ERP item id and joined to the storefront via barcode until the unique-id
//     metafield is established
//   - Attribute / Property: per-tenant attribute taxonomy resolved lazily from
//     ERP payloads; an attribute may be a storefront variation axis or a plain
//     descriptive property
//   - AttributeLink: ties an item to a resolved attribute/property pair
//
// Repositories are defined here in the domain layer; GORM implementations
// live in the infrastructure layer.
package catalog
