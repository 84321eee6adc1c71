// Package planners is an example JVM rule set for the engine: BUILD file
// parsing, spec expansion, per-kind source extraction, thrift code
// generation under the "thrift" variant, javac, scalac, ivy resolution,
// managed jar revisions under the "resolve" variant, scala dependency
// inference from imports and resources.
//
// The tasks do no real compilation. Each returns a small value describing
// what it would have produced, which is enough to exercise selection,
// variants, conflicts and dependency walks end to end.
package planners
