package attachments

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ImenBenAmar/SmartAI-hack-sofrecom-tunisie/internal/ai"
)

// SummaryTTL is how long a run summary stays visible.
const SummaryTTL = 5 * time.Second

// Metadata describes the extracted file.
type Metadata struct {
	SizeKB    float64 `json:"sizeKb"`
	MimeType  string  `json:"mimeType"`
	Extension string  `json:"extension"`
}

// ProcessedAttachment is an attachment whose text was extracted.
type ProcessedAttachment struct {
	MessageID                string             `json:"messageId"`
	AttachmentID             string             `json:"attachmentId"`
	Filename                 string             `json:"filename"`
	ExtractedText            string             `json:"extractedText"`
	Metadata                 Metadata           `json:"metadata"`
	Classification           *ai.Classification `json:"classification,omitempty"`
	ClassificationInProgress bool               `json:"classificationInProgress"`
}

func (p ProcessedAttachment) matches(messageID, attachmentID string) bool {
	return p.MessageID == messageID && p.AttachmentID == attachmentID
}

// Summary reports the outcome of a pipeline run.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Attempted int `json:"attempted"`
}

func (s Summary) String() string {
	return fmt.Sprintf("processed %d of %d attachments", s.Succeeded, s.Attempted)
}

// Store holds the processed attachments of one session. The list is only
// ever replaced as a whole, so readers always see a consistent snapshot.
//
// Every Purge starts a new generation. Writers that captured an older
// generation are ignored, so results of a run started before a purge never
// reappear after it.
type Store struct {
	mu            sync.RWMutex
	items         []ProcessedAttachment
	generation    uint64
	summary       *Summary
	summaryExpiry time.Time
	now           func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// List returns a copy of the current list.
func (s *Store) List() []ProcessedAttachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Generation returns the current generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Update replaces the list with fn(current) for a writer bound to
// generation gen. fn receives a copy and runs under the store lock; it must
// not call back into the store. Update reports false, leaving the list
// untouched, when the store was purged after gen.
func (s *Store) Update(gen uint64, fn func([]ProcessedAttachment) []ProcessedAttachment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.items = fn(slices.Clone(s.items))
	return true
}

// Find returns the attachment with the given composite key.
func (s *Store) Find(messageID, attachmentID string) (ProcessedAttachment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.items {
		if p.matches(messageID, attachmentID) {
			return p, true
		}
	}
	return ProcessedAttachment{}, false
}

// Purge drops every processed attachment and the last summary.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.summary = nil
	s.generation++
}

// setSummaryAt records the summary of a run bound to generation gen. It
// expires after SummaryTTL.
func (s *Store) setSummaryAt(gen uint64, sum Summary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return false
	}
	s.summary = &sum
	s.summaryExpiry = s.now().Add(SummaryTTL)
	return true
}

// Summary returns the last run summary, or nil once it has expired.
func (s *Store) Summary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil || !s.now().Before(s.summaryExpiry) {
		return nil
	}
	sum := *s.summary
	return &sum
}

// InProgress reports how many attachments are still being classified.
func (s *Store) InProgress() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.items {
		if p.ClassificationInProgress {
			n++
		}
	}
	return n
}
