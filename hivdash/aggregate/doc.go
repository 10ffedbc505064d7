// Package aggregate derives chart-ready shapes from the full record set.
//
// Every function here is pure: it takes records already loaded in memory and
// returns a new value. NaN numbers propagate through sums unless a function
// says otherwise.
package aggregate
