/*
Package observability provides tools for monitoring sessions.

It turns session lifecycle events into Prometheus metrics and structured log
records. Both are plain domain.LifecycleHooks and can be combined with
domain.ChainHooks.
*/
package observability
