package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/lockyolinks/lockyolinks/internal/app/repository"
)

// ShortIDFilter is a bloom filter over all known short ids. A negative test
// proves the id does not exist, so unknown short ids 404 without touching
// the store. False positives just fall through to a normal lookup. Soft
// deletes are not removed from the filter; the deleted record still exists
// and resolves to its terminal page.
type ShortIDFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewShortIDFilter sizes a filter for the expected number of links and the
// target false-positive rate.
func NewShortIDFilter(expectedLinks uint, falsePositiveRate float64) *ShortIDFilter {
	if expectedLinks == 0 {
		expectedLinks = 100000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.001
	}
	return &ShortIDFilter{
		filter: bloom.NewWithEstimates(expectedLinks, falsePositiveRate),
	}
}

// Warm loads every stored short id into the filter.
func (f *ShortIDFilter) Warm(ctx context.Context, links repository.LinkRepository) error {
	ids, err := links.ListShortIDs(ctx)
	if err != nil {
		return fmt.Errorf("warm short id filter: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.filter.AddString(id)
	}
	return nil
}

// Add records a newly created short id.
func (f *ShortIDFilter) Add(shortID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(shortID)
}

// MightContain reports whether the short id could exist. False means
// definitely absent.
func (f *ShortIDFilter) MightContain(shortID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(shortID)
}
