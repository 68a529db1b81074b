// Package cache keeps finished run results in Redis so repeated
// lookups skip the store.
package cache
