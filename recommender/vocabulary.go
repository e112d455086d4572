package recommender

import (
	"strings"
	"sync"
)

// PaddingID is never assigned to a token.
const PaddingID = 0

// Vocabulary maps lowercased title words to stable positive IDs.
// It only grows; an ID keeps its token for the lifetime of the Vocabulary.
// Safe for concurrent use.
type Vocabulary struct {
	mu  sync.RWMutex
	ids map[string]int
}

// NewVocabulary returns an empty Vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]int)}
}

// Tokenize splits text on whitespace, lowercases each word and returns its ID,
// assigning the next free ID to words not seen before.
func (v *Vocabulary) Tokenize(text string) []int {
	words := strings.Fields(text)
	ids := make([]int, 0, len(words))
	for _, w := range words {
		ids = append(ids, v.id(strings.ToLower(w)))
	}
	return ids
}

func (v *Vocabulary) id(token string) int {
	v.mu.RLock()
	id, ok := v.ids[token]
	v.mu.RUnlock()
	if ok {
		return id
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	// Another writer may have inserted it between the locks.
	if id, ok := v.ids[token]; ok {
		return id
	}
	id = len(v.ids) + 1
	v.ids[token] = id
	return id
}

// Lookup returns the ID of token without inserting it.
func (v *Vocabulary) Lookup(token string) (int, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	id, ok := v.ids[strings.ToLower(token)]
	return id, ok
}

// Size returns the number of known tokens, which is also the largest assigned ID.
func (v *Vocabulary) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.ids)
}
