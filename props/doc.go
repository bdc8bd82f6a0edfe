// Package props holds engine properties: an ordered set of dotted keys
// mapped to tagged values (string, number, bool, list). Engine labels and
// flattened health and metrics payloads are merged into one set that
// queries are evaluated against.
package props
