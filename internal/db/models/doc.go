// Package models contains the database model definitions for AuthGrid:
// users, nestable access groups, the two membership join tables, and the
// per-route action security records with their allowed-group assignments.
package models
