// Package query selects engines by their properties.
//
// A Constraints value maps property names to expected values. Lists act as
// allow-lists, booleans and "true"/"false" strings compare as booleans,
// strings of the form ">N" and "<N" compare numerically, and anything else
// compares by loose equality. Select evaluates a priority-ordered list of
// constraint sets and returns the matches of the first set that has any.
package query
