package matcher

import (
	"sync"

	"github.com/google/uuid"
)

// Ledger records every phone and record id already paired in this run so
// that no phone and no record is assigned twice.
type Ledger struct {
	mu      sync.Mutex
	phones  map[string]struct{}
	records map[uuid.UUID]struct{}
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		phones:  make(map[string]struct{}),
		records: make(map[uuid.UUID]struct{}),
	}
}

// PhoneUsed reports whether phone has already been assigned.
func (l *Ledger) PhoneUsed(phone string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.phones[phone]
	return ok
}

// RecordUsed reports whether the record has already received a phone.
func (l *Ledger) RecordUsed(id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[id]
	return ok
}

// Claim reserves both phone and record. It reserves nothing and returns
// false if either is already taken.
func (l *Ledger) Claim(phone string, id uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.phones[phone]; ok {
		return false
	}
	if _, ok := l.records[id]; ok {
		return false
	}
	l.phones[phone] = struct{}{}
	l.records[id] = struct{}{}
	return true
}

// Len returns the number of claims.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
