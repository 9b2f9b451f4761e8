package logging

import (
	"strings"
	"sync"
)

const redactedPlaceholder = "[SPOILER]"

// Redactor replaces spoiler terms (the killer's name, the truth
// narrative's tells) in log output so a host watching the console
// does not learn the solution of their own party.
type Redactor struct {
	mu    sync.RWMutex
	terms []string
}

// NewRedactor creates an empty redactor.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// AddTerm registers a spoiler term. Terms shorter than three
// characters are ignored to avoid shredding innocent text.
func (r *Redactor) AddTerm(term string) {
	term = strings.TrimSpace(term)
	if len(term) < 3 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terms = append(r.terms, term)
}

// Redact replaces all registered terms in the input.
func (r *Redactor) Redact(input string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, term := range r.terms {
		input = replaceFold(input, term, redactedPlaceholder)
	}
	return input
}

// replaceFold is strings.ReplaceAll with ASCII case folding.
func replaceFold(s, old, repl string) string {
	if old == "" {
		return s
	}
	var b strings.Builder
	lower := strings.ToLower(s)
	oldLower := strings.ToLower(old)
	for {
		i := strings.Index(lower, oldLower)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		b.WriteString(repl)
		s = s[i+len(old):]
		lower = lower[i+len(old):]
	}
}
