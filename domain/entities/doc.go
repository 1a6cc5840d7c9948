// Package entities provides the core domain types: intercepted events and
// their typed arguments, the policy document, allow-list entries, and the
// decisions recorded during interactive review.
package entities
