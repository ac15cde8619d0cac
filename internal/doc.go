// Package internal holds helpers shared by the root walletgate package that
// must not become part of the public API.
package internal
