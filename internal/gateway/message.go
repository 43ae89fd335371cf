package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/tgifai/newscast/internal/channel"
	"github.com/tgifai/newscast/internal/pkg/logs"
)

var errQueueNotReady = errors.New("message queue not initialized")

type QueueOptions struct {
	LaneBuffer    int
	MaxConcurrent int
}

// MessageQueue serializes messages per conversation lane while letting up to
// MaxConcurrent lanes run at once. A lane is keyed by Message.LaneKey, so one
// chat never sees its replies reordered.
type MessageQueue struct {
	lanes         map[string]chan *channel.Message
	mu            sync.RWMutex
	handler       channel.MessageHandler
	ctx           context.Context
	laneBuffer    int
	maxConcurrent chan struct{}
}

func newMessageQueue(opts QueueOptions) *MessageQueue {
	laneBuffer := opts.LaneBuffer
	if laneBuffer <= 0 {
		laneBuffer = 10
	}

	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}

	return &MessageQueue{
		lanes:         make(map[string]chan *channel.Message),
		laneBuffer:    laneBuffer,
		maxConcurrent: make(chan struct{}, maxConcurrent),
	}
}

func (q *MessageQueue) Init(ctx context.Context, handler channel.MessageHandler) error {
	if handler == nil {
		return errors.New("queue handler cannot be nil")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ctx = ctx
	q.handler = handler
	return nil
}

// Enqueue blocks while the message's lane is full.
func (q *MessageQueue) Enqueue(ctx context.Context, msg *channel.Message) error {
	q.mu.RLock()
	ready := q.handler != nil
	q.mu.RUnlock()
	if !ready {
		return errQueueNotReady
	}

	lane := q.getOrCreateLane(msg.LaneKey())
	select {
	case lane <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return q.ctx.Err()
	}
}

// Lanes reports how many conversation lanes have been opened.
func (q *MessageQueue) Lanes() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.lanes)
}

func (q *MessageQueue) getOrCreateLane(key string) chan *channel.Message {
	q.mu.RLock()
	lane, exists := q.lanes[key]
	q.mu.RUnlock()
	if exists {
		return lane
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if lane, exists := q.lanes[key]; exists {
		return lane
	}

	lane = make(chan *channel.Message, q.laneBuffer)
	q.lanes[key] = lane
	go q.processLane(key, lane)
	return lane
}

func (q *MessageQueue) processLane(key string, lane chan *channel.Message) {
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-lane:
			if err := q.acquire(q.ctx); err != nil {
				return
			}
			err := q.handler(q.ctx, msg)
			q.release()
			if err != nil {
				logs.CtxWarn(q.ctx, "[queue] failed to process message in lane %s: %v", key, err)
			}
		}
	}
}

func (q *MessageQueue) acquire(ctx context.Context) error {
	select {
	case q.maxConcurrent <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MessageQueue) release() {
	select {
	case <-q.maxConcurrent:
	default:
	}
}
