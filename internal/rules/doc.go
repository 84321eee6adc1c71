// Package rules is the typed registry of producers consulted by the engine.
//
// A producer answers "how is product P made for a subject of type T". There
// are three kinds, consulted in precedence order:
//
//  1. Singletons: one fixed value per product, for every subject.
//  2. Intrinsics: a function of the subject itself, keyed by (subject type, product).
//  3. Tasks: a function of the products named by its clause of selectors,
//     keyed by product and optionally restricted to some subject types.
//
// The first kind with a match wins; tasks of the same product are all
// candidates and the engine detects conflicting results. Every producer is a
// closed description (its clause is data), so Validate can check the whole
// registry at startup before any graph work begins.
package rules
