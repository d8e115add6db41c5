package leaderboard

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// A simple skip list keyed by (score desc, board asc) to achieve O(log n) updates.

const maxLevel = 16
const pFactor = 0.25

type node struct {
	e    Entry
	next [maxLevel]*node
}

// SkipList ranks boards by score. When capped, the lowest ranked entry is
// evicted once the list grows past its limit.
type SkipList struct {
	mu      sync.RWMutex
	head    *node
	lvl     int
	byBoard map[string]*node
	limit   int
	rng     *rand.Rand
}

// NewSkipList returns a leaderboard holding at most limit entries; zero or
// negative means unbounded.
func NewSkipList(limit int) *SkipList {
	// Use crypto/rand to generate a secure seed for PCG
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		seed = [16]byte{}
	}
	seed1 := binary.BigEndian.Uint64(seed[:8])
	seed2 := binary.BigEndian.Uint64(seed[8:])

	return &SkipList{
		head:    &node{},
		lvl:     1,
		byBoard: map[string]*node{},
		limit:   limit,
		rng:     rand.New(rand.NewPCG(seed1, seed2)),
	}
}

func (s *SkipList) randomLevel() int {
	lvl := 1
	for lvl < maxLevel && s.rng.Float64() < pFactor {
		lvl++
	}
	return lvl
}

func less(a, b Entry) bool {
	if a.Score == b.Score {
		return a.BoardID < b.BoardID
	}
	return a.Score > b.Score // higher score first
}

// Update inserts or moves a board to its new score.
func (s *SkipList) Update(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byBoard[e.BoardID]; ok {
		s.removeLocked(old.e)
	}
	update := [maxLevel]*node{}
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	lvl := s.randomLevel()
	if lvl > s.lvl {
		for i := s.lvl; i < lvl; i++ {
			update[i] = s.head
		}
		s.lvl = lvl
	}
	n := &node{e: e}
	for i := 0; i < lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	s.byBoard[e.BoardID] = n

	if s.limit > 0 && len(s.byBoard) > s.limit {
		s.removeLocked(s.lastLocked().e)
	}
}

func (s *SkipList) lastLocked() *node {
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil {
			cur = cur.next[i]
		}
	}
	return cur
}

func (s *SkipList) removeLocked(e Entry) {
	update := [maxLevel]*node{}
	cur := s.head
	for i := s.lvl - 1; i >= 0; i-- {
		for cur.next[i] != nil && less(cur.next[i].e, e) {
			cur = cur.next[i]
		}
		update[i] = cur
	}
	target := update[0].next[0]
	if target == nil || target.e.BoardID != e.BoardID {
		return
	}
	for i := 0; i < s.lvl; i++ {
		if update[i].next[i] == target {
			update[i].next[i] = target.next[i]
		}
	}
	delete(s.byBoard, e.BoardID)
	for s.lvl > 1 && s.head.next[s.lvl-1] == nil {
		s.lvl--
	}
}

func (s *SkipList) Remove(boardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.byBoard[boardID]; ok {
		s.removeLocked(n.e)
	}
}

func (s *SkipList) TopN(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, min(n, len(s.byBoard)))
	cur := s.head.next[0]
	for cur != nil && len(out) < n {
		out = append(out, cur.e)
		cur = cur.next[0]
	}
	return out
}

func (s *SkipList) Get(boardID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.byBoard[boardID]; ok {
		return n.e, true
	}
	return Entry{}, false
}

func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byBoard)
}

var _ Board = (*SkipList)(nil)
