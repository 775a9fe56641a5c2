// Package cache holds the bounded in-process maps of the engine: the live
// inbox feeds keyed by recipient and the in-memory dedup keys.
package cache
