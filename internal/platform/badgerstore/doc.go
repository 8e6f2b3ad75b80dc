// Package badgerstore provides an embedded, on-disk implementation of the
// mastery store backed by BadgerDB.
//
// It suits single-process deployments that need durability without running
// Postgres. Records are stored as JSON under keys of the form
// "mastery/<user>/<concept>", so a prefix scan yields one user's records in
// concept order.
package badgerstore
