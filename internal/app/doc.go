// Package app wires the pipeline together: it owns the logger, loads
// the optional workspace file, and runs one invocation end to end, from
// definition file to committed build plan or packaging artifact.
package app
