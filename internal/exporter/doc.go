// Package exporter renders result sets to their output formats.
//
// CSVWriter: core CSV writing with UTF-8 BOM for Excel compatibility,
// plus result-set and sibling-report shortcuts.
//
// WikiWriter: MediaWiki table output grouped by category, with entity
// escaping and date reformatting suitable for pasting into a wiki page.
package exporter
