// Package catalog maintains the per-action security table from the live
// route table. A refresh soft-hides every row, then walks the routes and
// upserts one row per (controller, action) pair, re-collecting the paths that
// map to it. Rows whose route disappeared stay in the table with Visible
// cleared, so custom group assignments survive a route coming and going.
package catalog
