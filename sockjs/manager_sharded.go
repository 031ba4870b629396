package sockjs

import "hash/fnv"

// ShardedManager spreads sessions across N independent Managers hashed
// by sid, letting a host scale the registry across cores the way
// spec.md 4.1 suggests ("a deployment may shard by sid hash across N
// registries") without changing any call site — it satisfies the same
// surface as Manager for the operations Handler needs.
type ShardedManager struct {
	shards []*Manager
}

// NewShardedManager builds n independent registries, each with its own
// sweeper, sharing the same factory and options.
func NewShardedManager(n int, factory SessionFactory, opts ...Option) *ShardedManager {
	if n < 1 {
		n = 1
	}
	sm := &ShardedManager{shards: make([]*Manager, n)}
	for i := range sm.shards {
		sm.shards[i] = NewManager(factory, opts...)
	}
	return sm
}

func (sm *ShardedManager) shardFor(sid string) *Manager {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sid))
	return sm.shards[h.Sum32()%uint32(len(sm.shards))]
}

func (sm *ShardedManager) Acquire(sid string) (*Record, <-chan Frame, error) {
	return sm.shardFor(sid).Acquire(sid)
}

func (sm *ShardedManager) Release(rec *Record) {
	sm.shardFor(rec.sid).Release(rec)
}

func (sm *ShardedManager) SessionMessage(sid string, msg string) error {
	return sm.shardFor(sid).SessionMessage(sid, msg)
}

func (sm *ShardedManager) SessionBinaryMessage(sid string, data []byte) error {
	return sm.shardFor(sid).SessionBinaryMessage(sid, data)
}

// Broadcast fans the frame out across every shard.
func (sm *ShardedManager) Broadcast(f Frame) {
	for _, shard := range sm.shards {
		shard.Broadcast(f)
	}
}

// Close stops every shard's sweeper.
func (sm *ShardedManager) Close() {
	for _, shard := range sm.shards {
		shard.Close()
	}
}
