package blackboard

import "fmt"

// Redis key pattern helpers
//
// All keys and Pub/Sub channels are namespaced by run ID so concurrent runs
// can safely share a single Redis server.
//
// Key pattern: atelier:{run_id}:{entity}
// Channel pattern: atelier:{run_id}:event_stream

// StateKey returns the Redis key for a run's state hash.
// Pattern: atelier:{run_id}:state
func StateKey(runID string) string {
	return fmt.Sprintf("atelier:%s:state", runID)
}

// EventsKey returns the Redis key for a run's append-only event list.
// Pattern: atelier:{run_id}:events
func EventsKey(runID string) string {
	return fmt.Sprintf("atelier:%s:events", runID)
}

// QueueKey returns the Redis key for a run's agent work queue.
// Pattern: atelier:{run_id}:queue
func QueueKey(runID string) string {
	return fmt.Sprintf("atelier:%s:queue", runID)
}

// RunMetaKey returns the Redis key for a run's metadata hash.
// Pattern: atelier:run:{run_id}
func RunMetaKey(runID string) string {
	return fmt.Sprintf("atelier:run:%s", runID)
}

// RunIndexKey returns the Redis key for the global run index ZSET,
// scored by creation time in milliseconds.
func RunIndexKey() string {
	return "atelier:runs"
}

// EventStreamChannel returns the Pub/Sub channel mirroring a run's event
// log for live watching.
// Pattern: atelier:{run_id}:event_stream
func EventStreamChannel(runID string) string {
	return fmt.Sprintf("atelier:%s:event_stream", runID)
}
