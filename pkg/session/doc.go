/*
Package session serialises access to persisted flows.

Stateless hosts (HTTP, MCP) load a flow, apply one engine operation and save
it again for every request. Manager wraps that read-modify-write in a per-flow
lock, optionally backed by a ports.DistributedLocker when several replicas
share one store.
*/
package session
