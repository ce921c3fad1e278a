// Package analysis computes the statistics reported for each regional
// series: least-squares trends with a significance test, classical additive
// decomposition, Pearson correlation and descriptive summaries.
//
// Every function takes immutable series and returns a new value or an error
// from the domain taxonomy. Undefined results are NaN, never zero.
package analysis
