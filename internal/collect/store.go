package collect

import "sync"

// Store holds the client's read-through projections of server state: the
// stamps near the user and the stamps the user has collected.
type Store struct {
	mu     sync.RWMutex
	userID string
	nearby []Stamp
	mine   []Stamp
}

func NewStore(userID string) *Store {
	return &Store{userID: userID}
}

func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Store) SetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != userID {
		s.nearby = nil
		s.mine = nil
	}
	s.userID = userID
}

// ReplaceNearby swaps the whole nearby collection. Duplicate ids in the
// response keep their first occurrence.
func (s *Store) ReplaceNearby(stamps []Stamp) {
	next := uniqueStamps(stamps)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nearby = next
}

func (s *Store) ReplaceMine(stamps []Stamp) {
	next := uniqueStamps(stamps)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mine = next
}

// AddNearby appends stamp to the nearby collection, replacing an entry with
// the same id in place.
func (s *Store) AddNearby(stamp Stamp) {
	stamp = stamp.clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.nearby {
		if s.nearby[i].ID == stamp.ID {
			s.nearby[i] = stamp
			return
		}
	}
	s.nearby = append(s.nearby, stamp)
}

// MergeCollected records a successful collection: the stamp is appended to
// mine unless already present (in which case it is refreshed) and the nearby
// entry with the same id picks up the new collectedBy set.
func (s *Store) MergeCollected(stamp Stamp) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp = stamp.withCollector(s.userID)
	replaced := false
	for i := range s.mine {
		if s.mine[i].ID == stamp.ID {
			s.mine[i] = stamp
			replaced = true
			break
		}
	}
	if !replaced {
		s.mine = append(s.mine, stamp)
	}

	for i := range s.nearby {
		if s.nearby[i].ID == stamp.ID {
			s.nearby[i] = mergeCollectors(s.nearby[i], stamp.CollectedBy)
		}
	}
}

// MarkCollected adds userID to the collectedBy set of the stamp with the
// given id wherever it is cached. Membership is never removed.
func (s *Store) MarkCollected(stampID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.nearby {
		if s.nearby[i].ID == stampID {
			s.nearby[i] = s.nearby[i].withCollector(userID)
		}
	}
	for i := range s.mine {
		if s.mine[i].ID == stampID {
			s.mine[i] = s.mine[i].withCollector(userID)
		}
	}
}

func (s *Store) Nearby() []Stamp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStamps(s.nearby)
}

func (s *Store) Mine() []Stamp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneStamps(s.mine)
}

// IsCollected reports whether the current user owns the stamp according to
// either projection.
func (s *Store) IsCollected(stampID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.mine {
		if st.ID == stampID {
			return true
		}
	}
	for _, st := range s.nearby {
		if st.ID == stampID {
			return st.CollectedByUser(s.userID)
		}
	}
	return false
}

func mergeCollectors(st Stamp, ids []string) Stamp {
	out := st.clone()
	for _, id := range ids {
		out = out.withCollector(id)
	}
	return out
}

func uniqueStamps(stamps []Stamp) []Stamp {
	out := make([]Stamp, 0, len(stamps))
	seen := make(map[string]struct{}, len(stamps))
	for _, st := range stamps {
		if _, ok := seen[st.ID]; ok {
			continue
		}
		seen[st.ID] = struct{}{}
		out = append(out, st.clone())
	}
	return out
}

func cloneStamps(stamps []Stamp) []Stamp {
	out := make([]Stamp, len(stamps))
	for i, st := range stamps {
		out[i] = st.clone()
	}
	return out
}
