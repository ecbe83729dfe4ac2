// Package cache holds the three process-wide caches of the search engine:
// the category topology, the raw product listings per subcategory, and the
// bounded LRU cache of complete search results.
//
// All caches are safe for concurrent use. Values handed out are either copies
// or slices that callers must treat as read-only.
package cache
