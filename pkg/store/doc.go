// Package store keeps the NCBI taxonomy in a SQL database.
//
// Two drivers are supported: SQLite through modernc.org/sqlite (the default,
// one file under the data directory) and PostgreSQL through pgx. Queries are
// written once with "?" placeholders and rebound for PostgreSQL.
//
// # Schema
//
//	divisions(id, code, division)
//	genetic_codes(id, name)
//	nodes(tax_id, parent_tax_id, rank, division_id, genetic_code_id,
//	      mito_genetic_code_id, comment)
//	names(seq, tax_id, name, name_class)
//	meta(key, value)
//
// names.seq preserves dump order so that a node's names of one class come
// back in the order NCBI lists them.
//
// # Errors
//
// Lookups of unknown IDs or names fail with NOT_FOUND, nodes that break the
// data model (no scientific name, ancestry that never reaches the root) with
// MALFORMED_RECORD, and any query against a database that was never
// populated with NOT_POPULATED.
package store
