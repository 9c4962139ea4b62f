// Package cache implements a generation-tracked key/value store for derived
// course data.
//
// Every committed entry carries the instant its generation started. A new
// value is only installed when nothing newer (a later generation or a later
// invalidation) is already stored, so concurrent regenerations never block
// each other and an older result never replaces a newer one. Invalidations
// recorded inside a Scope are buffered until the outermost scope commits.
package cache
