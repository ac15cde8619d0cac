// Package metrics implements the in-process counter system consumed by the
// root walletgate package. Counters are lock-free atomics; snapshots are deep
// copies safe to hand to exporters.
package metrics
