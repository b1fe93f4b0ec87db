// Package analysis holds the pure statistics over infection point sets and
// trend series: before/after comparison, trend summary and cluster analysis.
//
// Functions never return NaN or Inf. Degenerate inputs produce one of the
// domain sentinel errors (ErrEmptyInput, ErrDivisionByZero) and the caller
// decides how to present the missing figure.
package analysis
