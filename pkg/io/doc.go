// Package io provides the machine-readable encodings of taxonomy query
// results.
//
// # Overview
//
// The CLI and the HTTP server share these encoders so that "taxtree show
// --json" and "GET /v1/taxa/{term}" produce the same documents.
//
//   - Nodes: JSON, YAML or CSV ([WriteNodesCSV])
//   - Lineages: CSV with one flexible row per lineage ([WriteLineagesCSV])
//   - Trees: JSON documents ([WriteTreeJSON], [TreeDocument])
//
// # Tree Format
//
// A tree document lists every node reachable from the root in pre-order,
// the parent-child edges and the marked IDs:
//
//	{
//	  "root": 1,
//	  "marked": [9606],
//	  "nodes": [
//	    {"tax_id": 1, "parent_tax_id": 1, "rank": "no rank", "names": {...}},
//	    {"tax_id": 9606, "parent_tax_id": 9605, "rank": "species", "names": {...}}
//	  ],
//	  "edges": [
//	    {"parent": 1, "child": 9606}
//	  ]
//	}
//
// After simplification an edge may connect a node to a descendant several
// ranks below it, so "parent" is not always the child's parent_tax_id.
//
// # CSV Formats
//
// Node listings start with the header
//
//	taxid,scientific_name,rank,division,genetic_code,mitochondrial_genetic_code
//
// Lineage listings have no header; each row holds "rank:name:taxid" cells
// from the root down, so rows differ in length.
package io
