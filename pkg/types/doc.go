// Package types defines the Todo entity, the Store interface, configuration,
// and the standard errors shared by the todostore server, client, and CLI.
package types
