package knowledge

import (
	"strings"
	"sync"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

// keywordFallbackCount is how many documents are returned when no word matches.
const keywordFallbackCount = 3

// KeywordStore is the in-process document list used when the vector path is
// unavailable.
type KeywordStore struct {
	mu   sync.RWMutex
	docs []types.Document
}

func NewKeywordStore(docs ...types.Document) *KeywordStore {
	return &KeywordStore{docs: append([]types.Document(nil), docs...)}
}

func (s *KeywordStore) Add(doc types.Document) {
	s.mu.Lock()
	s.docs = append(s.docs, doc)
	s.mu.Unlock()
}

func (s *KeywordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Search returns up to k documents whose lowercased content contains any
// whitespace-separated word of the lowercased query. With no match it returns
// the first three documents.
func (s *KeywordStore) Search(query string, k int) []types.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return nil
	}

	words := strings.Fields(strings.ToLower(query))
	var matches []types.Document
	for _, doc := range s.docs {
		if k > 0 && len(matches) == k {
			break
		}
		content := strings.ToLower(doc.Content)
		for _, w := range words {
			if strings.Contains(content, w) {
				matches = append(matches, doc)
				break
			}
		}
	}

	if len(matches) == 0 {
		n := min(keywordFallbackCount, len(s.docs))
		matches = append([]types.Document(nil), s.docs[:n]...)
	}
	return matches
}
