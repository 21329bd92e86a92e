package blackboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client provides Redis operations for run state, event logs and agent
// queues. Keys are namespaced per run; the client itself is shared and
// thread-safe.
type Client struct {
	rdb *redis.Client
}

// RunInfo summarizes one recorded run for listings.
type RunInfo struct {
	RunID       string
	Prompt      string
	CreatedAtMs int64
	BestScore   int
	GoalReached bool
}

// NewClient creates a blackboard client from Redis connection options.
func NewClient(redisOpts *redis.Options) *Client {
	return &Client{rdb: redis.NewClient(redisOpts)}
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SaveState writes the full state hash for a run. The scheduler calls this
// after every agent step; the write is a field-wise overwrite, so fields an
// agent did not touch keep their previous values in memory and on disk.
func (c *Client) SaveState(ctx context.Context, s *State) error {
	hash, err := StateToHash(s)
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}
	if err := c.rdb.HSet(ctx, StateKey(s.RunID), hash).Err(); err != nil {
		return fmt.Errorf("failed to write state to Redis: %w", err)
	}
	return nil
}

// LoadState retrieves a run's state, including its event log.
// Returns (nil, redis.Nil) if the run doesn't exist.
func (c *Client) LoadState(ctx context.Context, runID string) (*State, error) {
	hashData, err := c.rdb.HGetAll(ctx, StateKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read state from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	state, err := HashToState(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize state: %w", err)
	}

	events, err := c.Events(ctx, runID)
	if err != nil {
		return nil, err
	}
	state.Events = events
	return state, nil
}

// AppendEvent appends an event to the run's log, assigns its sequence
// number, and mirrors it to the Pub/Sub channel. The scheduler is the only
// writer for a run, so list length is a safe sequence source.
func (c *Client) AppendEvent(ctx context.Context, runID string, ev *Event) error {
	if ev.Type == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if ev.CreatedAtMs == 0 {
		ev.CreatedAtMs = time.Now().UnixMilli()
	}

	length, err := c.rdb.LLen(ctx, EventsKey(runID)).Result()
	if err != nil {
		return fmt.Errorf("failed to read event log length: %w", err)
	}
	ev.Seq = length

	payload, err := EventToJSON(ev)
	if err != nil {
		return err
	}
	if err := c.rdb.RPush(ctx, EventsKey(runID), payload).Err(); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	if err := c.rdb.Publish(ctx, EventStreamChannel(runID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Events returns the full event log for a run, oldest first.
// Returns an empty slice when the run has no events.
func (c *Client) Events(ctx context.Context, runID string) ([]Event, error) {
	raw, err := c.rdb.LRange(ctx, EventsKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		ev, err := EventFromJSON(item)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, nil
}

// PushQueue appends agent ids to the back of the run's work queue.
func (c *Client) PushQueue(ctx context.Context, runID string, agentIDs ...string) error {
	if len(agentIDs) == 0 {
		return nil
	}
	values := make([]interface{}, len(agentIDs))
	for i, id := range agentIDs {
		values[i] = id
	}
	if err := c.rdb.RPush(ctx, QueueKey(runID), values...).Err(); err != nil {
		return fmt.Errorf("failed to push queue: %w", err)
	}
	return nil
}

// PopQueue removes and returns the front agent id from the work queue.
// Returns ("", redis.Nil) when the queue is empty.
func (c *Client) PopQueue(ctx context.Context, runID string) (string, error) {
	id, err := c.rdb.LPop(ctx, QueueKey(runID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to pop queue: %w", err)
	}
	return id, nil
}

// QueueLen returns the number of pending agent ids in the work queue.
func (c *Client) QueueLen(ctx context.Context, runID string) (int64, error) {
	length, err := c.rdb.LLen(ctx, QueueKey(runID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return length, nil
}

// RegisterRun records a run in the global index with its prompt and
// creation time so it shows up in listings.
func (c *Client) RegisterRun(ctx context.Context, runID, prompt string) error {
	now := time.Now().UnixMilli()
	meta := map[string]interface{}{
		"run_id":        runID,
		"prompt":        prompt,
		"created_at_ms": now,
	}
	if err := c.rdb.HSet(ctx, RunMetaKey(runID), meta).Err(); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}
	z := redis.Z{Score: float64(now), Member: runID}
	if err := c.rdb.ZAdd(ctx, RunIndexKey(), z).Err(); err != nil {
		return fmt.Errorf("failed to index run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
func (c *Client) ListRuns(ctx context.Context, limit int64) ([]RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}
	runIDs, err := c.rdb.ZRevRange(ctx, RunIndexKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}

	runs := make([]RunInfo, 0, len(runIDs))
	for _, runID := range runIDs {
		meta, err := c.rdb.HGetAll(ctx, RunMetaKey(runID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read run metadata: %w", err)
		}
		info := RunInfo{
			RunID:     runID,
			Prompt:    meta["prompt"],
			BestScore: -1,
		}
		info.CreatedAtMs, _ = strconv.ParseInt(meta["created_at_ms"], 10, 64)

		fields, err := c.rdb.HMGet(ctx, StateKey(runID), "best_score", "goal_reached").Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read run state fields: %w", err)
		}
		if raw, ok := fields[0].(string); ok {
			if score, err := strconv.Atoi(raw); err == nil {
				info.BestScore = score
			}
		}
		if raw, ok := fields[1].(string); ok {
			info.GoalReached = raw == "true"
		}
		runs = append(runs, info)
	}
	return runs, nil
}

// Subscription represents an active Pub/Sub subscription to a run's event
// stream. Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of run events. The channel is closed when the
// subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors. Errors are non-fatal;
// the subscription continues and malformed messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements
// io.Closer. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to a run's live event stream.
// Events are delivered on a buffered channel (size 10); Redis Pub/Sub is
// at-most-once, so a slow subscriber may miss events; the durable log in
// the events list remains authoritative.
func (c *Client) SubscribeEvents(ctx context.Context, runID string) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EventStreamChannel(runID))

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := EventFromJSON(msg.Payload)
				if err != nil {
					select {
					case errorsChan <- err:
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case eventsChan <- ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check LoadState and PopQueue results.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
