package engine

import (
	"sync"

	id "caretrail/pkg/domain"
)

// numVisitShards spreads per-visit locking across independent mutexes so
// unrelated visits never contend. Two visits hashing to the same shard
// serialize against each other, which is harmless: exclusivity per visit
// id is the requirement, parallelism across ids the goal.
const numVisitShards = 128

// visitLocks serializes mutating operations per visit id. A shard is
// picked by FNV-1a over the id, so the same visit always lands on the
// same mutex.
type visitLocks struct {
	shards [numVisitShards]sync.Mutex
}

func (l *visitLocks) lock(visitID id.VisitID) (unlock func()) {
	shard := &l.shards[hashVisitID(visitID.String())%numVisitShards]
	shard.Lock()
	return shard.Unlock
}

func hashVisitID(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
