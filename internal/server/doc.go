// Package server provides the loopback HTTP plumbing the CLI uses for
// OAuth2 authorization flows. A short-lived server on localhost receives
// the provider's callback, exchanges the authorization code, and hands
// the token back to the caller over a channel.
package server
