// Package datatables implements the server-side half of the DataTables grid
// protocol: paging, per-column and global filtering, and multi-column
// sorting over an arbitrary database collection, reporting both the
// unfiltered and the post-filter row counts.
//
// Plain-string filters and paging are pushed down to the database. As soon
// as any search term is flagged as a regular expression the engine
// materializes the sorted result set and filters in memory, since the store
// cannot evaluate arbitrary patterns.
package datatables
