// Package main provides the entry point for AuthGrid, a self-hosted access
// administration service. It maintains a directed graph of groups that may
// contain users as well as other groups, resolves effective membership over
// that graph, keeps a catalog of route-level security requirements in sync
// with the live route table, and serves the data to grid UIs through a
// server-side DataTables query engine. Persistence uses gorm, the web layer
// uses Fiber.
package main
