// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing the learning rules to remain
// independent of specific database technologies or persistence details.
//
// Implementations live in subpackages (store/memory) and in
// platform/postgres.
package store
