// Package model defines the semantic entities produced by the modeller:
// components, executables, applications, systems, interface instances,
// bindings, and the file system objects destined for an app's staging
// area.
//
// The model is a strict containment hierarchy. A System contains named
// Apps, an App contains named Executables and references Components, an
// Executable contains ordered ComponentInstances. Parents exclusively own
// their children; every cross reference (binding target, component
// instance to component) is a non-owning lookup by name. The model is
// built once per run and is read-only during build-plan generation.
package model
