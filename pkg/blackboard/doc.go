// Package blackboard provides the shared pipeline state for Atelier runs.
//
// Every run owns a namespaced slice of Redis: a state hash holding the typed
// pipeline fields, an append-only event log (mirrored to a Pub/Sub channel
// for live watching), and a work queue of agent identifiers. The scheduler
// owns the state between agent invocations; agents read any field and write
// back partial updates which the scheduler merges last-writer-wins.
//
// Key pattern:   atelier:{run_id}:{entity}
// Channel:       atelier:{run_id}:event_stream
// Run index:     atelier:runs (ZSET scored by creation time)
package blackboard
