// Package deps materializes pinned third-party sources as shallow git
// checkouts.
//
// A manifest (gclient DEPS, JSON or YAML) maps dependency names to
// {dep_type, url@revision}. Synchronizer fans git-typed entries out over a
// bounded worker pool; each worker runs the Checkouter's fixed git sequence
// into <root>/<name>. Every task drains before the first failure is returned.
package deps
