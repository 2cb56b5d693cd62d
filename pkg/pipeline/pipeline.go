// Package pipeline runs taxonomy queries for the CLI and the HTTP server.
//
// This package turns user terms (taxonomy IDs or scientific names) into
// nodes, lineages, trees and least common ancestors. By centralizing this
// logic, both entry points resolve terms, cache lineages and report metrics
// the same way.
//
// # Architecture
//
// A query runs in three steps:
//
//  1. Resolve: map each term to a taxonomy ID (names are cached)
//  2. Fetch: load lineages or subtrees from the store, concurrently and
//     through the cache
//  3. Build: merge the node sets into a [tree.Tree], mark the requested taxa
//     and simplify unless internal nodes are wanted
//
// Rendering the result is a separate step ([Render]) so that callers can
// pick the output format per request.
//
// # Usage
//
//	runner := pipeline.NewRunner(db, cache, nil, logger)
//	t, err := runner.Tree(ctx, []string{"Homo sapiens", "9598"}, pipeline.TreeOptions{})
//	if err != nil {
//	    return err
//	}
//	out, err := pipeline.Render(ctx, t, pipeline.RenderOptions{Format: pipeline.FormatText})
package pipeline

import (
	"strings"

	"github.com/matzehuels/taxtree/pkg/errors"
	"github.com/matzehuels/taxtree/pkg/taxon"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultConcurrency is the number of lineages fetched in parallel.
const DefaultConcurrency = 8

// Format constants for tree output.
const (
	FormatText   = "txt"
	FormatNewick = "newick"
	FormatDOT    = "dot"
	FormatSVG    = "svg"
	FormatPNG    = "png"
	FormatJSON   = "json"
)

// ValidFormats is the set of supported tree output formats.
var ValidFormats = map[string]bool{
	FormatText:   true,
	FormatNewick: true,
	FormatDOT:    true,
	FormatSVG:    true,
	FormatPNG:    true,
	FormatJSON:   true,
}

// FormatNames lists the formats in the order shown in help and errors.
var FormatNames = []string{FormatText, FormatNewick, FormatDOT, FormatSVG, FormatPNG, FormatJSON}

// ContentTypes maps a format to its MIME type.
var ContentTypes = map[string]string{
	FormatText:   "text/plain; charset=utf-8",
	FormatNewick: "text/plain; charset=utf-8",
	FormatDOT:    "text/vnd.graphviz; charset=utf-8",
	FormatSVG:    "image/svg+xml",
	FormatPNG:    "image/png",
	FormatJSON:   "application/json",
}

// =============================================================================
// Query Options
// =============================================================================

// TreeOptions configures [Runner.Tree].
type TreeOptions struct {
	// Internal keeps unmarked single-child nodes instead of simplifying.
	Internal bool
}

// SubtreeOptions configures [Runner.Subtree].
type SubtreeOptions struct {
	// Species stops descending at species-ranked taxa.
	Species bool
	// Internal keeps unmarked single-child nodes instead of simplifying.
	Internal bool
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)",
			format, strings.Join(FormatNames, ", "))
	}
	return nil
}

// ValidateTemplate checks a display template. Empty means the full
// description and is accepted; otherwise at least one placeholder must
// appear.
func ValidateTemplate(template string) error {
	if template == "" {
		return nil
	}
	for _, p := range []string{taxon.PlaceholderTaxID, taxon.PlaceholderName, taxon.PlaceholderRank} {
		if strings.Contains(template, p) {
			return nil
		}
	}
	return errors.New(errors.ErrCodeInvalidTemplate, "template %q uses none of %%taxid, %%name, %%rank", template)
}
