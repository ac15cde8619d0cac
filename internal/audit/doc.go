// Package audit provides the internal audit event model and the asynchronous
// dispatcher used by the root walletgate package. Events are buffered and
// forwarded to a pluggable sink off the reconciliation hot path.
package audit
