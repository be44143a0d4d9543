package engine

import (
	"sync"

	"github.com/seantiz/flysearch/internal/model"
)

// subscriberBufferSize is the channel buffer for each status subscriber.
// A task publishes at most three updates, so subscribers never fall behind.
const subscriberBufferSize = 4

// StatusBroker fans task status changes out to subscribers.
// It is safe for concurrent use.
//
// Topics exist only while they have subscribers. A subscriber that arrives
// after a task finished gets a channel that never receives; callers must
// check the task record after subscribing.
type StatusBroker struct {
	mu     sync.Mutex
	topics map[string]*statusTopic
}

type statusTopic struct {
	subs   map[int]chan model.Task
	nextID int
}

// NewStatusBroker creates a new status broker.
func NewStatusBroker() *StatusBroker {
	return &StatusBroker{
		topics: make(map[string]*statusTopic),
	}
}

// Subscribe returns a channel that receives snapshots of the given task as
// it changes and an unsubscribe function. The channel is closed once the
// task reaches a terminal state.
func (b *StatusBroker) Subscribe(taskID string) (<-chan model.Task, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[taskID]
	if !ok {
		t = &statusTopic{subs: make(map[int]chan model.Task)}
		b.topics[taskID] = t
	}

	ch := make(chan model.Task, subscriberBufferSize)
	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
		if len(t.subs) == 0 && b.topics[taskID] == t {
			delete(b.topics, taskID)
		}
	}
}

// Publish sends a task snapshot to all subscribers of the task. Snapshots
// are dropped for subscribers whose buffers are full.
func (b *StatusBroker) Publish(taskID string, task model.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[taskID]
	if !ok {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- task:
		default:
		}
	}
}

// Close closes every subscriber channel of the task and forgets the topic.
func (b *StatusBroker) Close(taskID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[taskID]
	if !ok {
		return
	}

	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
	delete(b.topics, taskID)
}

// topicCount returns the number of live topics.
func (b *StatusBroker) topicCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics)
}
