// Package store provides the document-store layer for arbor.
//
// The forum domain consumes a small set of collection-scoped primitives:
// insert/get/find/scan, field updates, array push/pull, atomic numeric
// adds, deletes, and a keyed monotonic counter. The [Store] interface
// captures exactly that surface; the domain layer never talks to a
// database client directly.
//
// Two implementations ship with the package:
//
//   - [Dynamo] runs on Amazon DynamoDB. Pushes use list_append, pulls
//     use optimistic locking on the managed version attribute, and the
//     counter is an ADD-based atomic upsert, so every primitive is a
//     single atomic operation on the table (or a bounded retry of one).
//
//   - [Memory] is a mutex-guarded in-memory store with the same
//     semantics, used by the test suites and for local development.
//
// Items are raw DynamoDB attribute maps; callers marshal their own
// types with the attributevalue package.
//
// # Errors
//
//   - [ErrNotFound] - no item for the given key or field value
//   - [ErrAlreadyExists] - insert collided with an existing id
//   - [ErrConcurrentModification] - a pull lost the version race
//     repeatedly and gave up
package store
