// Package session binds a caller identity to an organization and a company
// tenant for the lifetime of one request. Sessions are carried in signed
// bearer tokens; verification is stateless and nothing is persisted between
// calls.
package session
