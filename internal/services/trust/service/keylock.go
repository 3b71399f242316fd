package service

import "sync"

// stripeCount trades memory for contention, power of two for cheap masking
const stripeCount = 128

// keyMutex linearizes operations per (chat, user) key
// different keys may share a stripe, that only costs throughput never safety
type keyMutex struct {
	stripes [stripeCount]sync.Mutex
}

func (k *keyMutex) lock(chatID, userID int64) *sync.Mutex {
	m := &k.stripes[stripeIndex(chatID, userID)]
	m.Lock()
	return m
}

func stripeIndex(chatID, userID int64) uint64 {
	// fnv-1a over both ids
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for _, v := range [2]uint64{uint64(chatID), uint64(userID)} {
		for i := 0; i < 8; i++ {
			h ^= (v >> (8 * i)) & 0xff
			h *= prime
		}
	}
	return h & (stripeCount - 1)
}
