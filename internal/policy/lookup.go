// Package policy ranks policy documents against free-text queries.
package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lucasnoah/hirefactory/internal/db"
	"github.com/lucasnoah/hirefactory/internal/pipeline"
)

// DefaultTopK is the number of documents returned when none is configured.
const DefaultTopK = 3

// Store is the persistence the lookup reads from and writes through.
type Store interface {
	ListPolicies(ctx context.Context) ([]db.Policy, error)
	InsertPolicy(ctx context.Context, p db.Policy) error
}

// Lookup holds an in-memory copy of the policy table and answers keyword
// queries over it. It is safe for concurrent use.
type Lookup struct {
	store Store
	topK  int

	mu   sync.RWMutex
	docs []db.Policy
}

// NewLookup loads every policy from store. topK <= 0 means DefaultTopK.
func NewLookup(ctx context.Context, store Store, topK int) (*Lookup, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	l := &Lookup{store: store, topK: topK}
	if err := l.Refresh(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Refresh reloads the documents from the store.
func (l *Lookup) Refresh(ctx context.Context) error {
	docs, err := l.store.ListPolicies(ctx)
	if err != nil {
		return fmt.Errorf("load policies: %w", err)
	}
	l.mu.Lock()
	l.docs = docs
	l.mu.Unlock()
	return nil
}

// Add stores p and makes it queryable immediately.
func (l *Lookup) Add(ctx context.Context, p db.Policy) error {
	if p.PolicyID == "" {
		return fmt.Errorf("add policy: policy id is required")
	}
	if err := l.store.InsertPolicy(ctx, p); err != nil {
		return fmt.Errorf("add policy %s: %w", p.PolicyID, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.docs {
		if l.docs[i].PolicyID == p.PolicyID {
			l.docs[i] = p
			return nil
		}
	}
	l.docs = append(l.docs, p)
	return nil
}

// Len returns the number of loaded documents.
func (l *Lookup) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs)
}

// Query returns up to the configured number of documents matching query,
// restricted to policyType when it is non-empty.
func (l *Lookup) Query(query, policyType string) []pipeline.PolicyDoc {
	return l.QueryN(query, policyType, l.topK)
}

// QueryN is Query with an explicit result cap.
//
// A document scores one point for every query term (duplicates included)
// found in its content, name or doc id. Documents scoring zero are dropped.
// Ties keep load order.
func (l *Lookup) QueryN(query, policyType string, n int) []pipeline.PolicyDoc {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || n <= 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	type scored struct {
		doc   db.Policy
		score int
	}
	var hits []scored
	for _, d := range l.docs {
		if policyType != "" && !strings.EqualFold(d.PolicyType, policyType) {
			continue
		}
		if s := score(terms, d); s > 0 {
			hits = append(hits, scored{doc: d, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > n {
		hits = hits[:n]
	}

	out := make([]pipeline.PolicyDoc, 0, len(hits))
	for _, h := range hits {
		out = append(out, toDoc(h.doc))
	}
	return out
}

func score(terms []string, d db.Policy) int {
	content := strings.ToLower(d.Content)
	name := strings.ToLower(d.PolicyName)
	docID := strings.ToLower(d.DocID)
	n := 0
	for _, t := range terms {
		if strings.Contains(content, t) || strings.Contains(name, t) || strings.Contains(docID, t) {
			n++
		}
	}
	return n
}

func toDoc(p db.Policy) pipeline.PolicyDoc {
	return pipeline.PolicyDoc{
		Content: p.Content,
		Metadata: map[string]string{
			"policy_id":   p.PolicyID,
			"policy_name": p.PolicyName,
			"policy_type": p.PolicyType,
			"doc_id":      p.DocID,
		},
	}
}
