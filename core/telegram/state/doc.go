// Package state keeps per-user dialog sessions: the current flow step, the
// fields collected so far, the credentials entered in the chat and the API
// clients built from them. A Store is created by the application and passed
// to the router; there is no package-level session registry.
package state
