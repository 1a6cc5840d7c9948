// Package ports holds the interfaces the engine and coordinator need from
// their surroundings: the policy document store, the operator prompt, name
// resolution, denial reporting and process exit.
package ports
