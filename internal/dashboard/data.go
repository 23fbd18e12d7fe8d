// Package dashboard provides the read-only reporting surface over the lead
// spreadsheet: filterable summaries, count metrics and chart rendering.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TenorioDevfullStack/telegram-bot-ia/internal/models"
)

// DefaultCacheTTL is how long a loaded snapshot of the sheet is reused.
const DefaultCacheTTL = 10 * time.Minute

// LeadReader reads every lead row from the tabular store.
type LeadReader interface {
	ReadAll(ctx context.Context) ([]models.Lead, error)
}

// Loader reads lead rows through a TTL cache so each page view does not hit
// the spreadsheet API.
type Loader struct {
	reader LeadReader
	ttl    time.Duration

	mu       sync.Mutex
	cached   []models.Lead
	loadedAt time.Time
}

// NewLoader creates a loader with the given cache TTL.
func NewLoader(reader LeadReader, ttl time.Duration) *Loader {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Loader{reader: reader, ttl: ttl}
}

// Load returns the cached snapshot when fresh, reloading from the reader
// otherwise.
func (l *Loader) Load(ctx context.Context) ([]models.Lead, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && time.Since(l.loadedAt) < l.ttl {
		slog.Debug("dashboard.Loader.Load: serving cached snapshot", "count", len(l.cached), "age", time.Since(l.loadedAt))
		return l.cached, nil
	}

	leads, err := l.reader.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load leads: %w", err)
	}
	l.cached = leads
	l.loadedAt = time.Now()
	slog.Info("dashboard.Loader.Load: snapshot reloaded", "count", len(leads))
	return leads, nil
}

// Filter selects leads by classification and interest. An empty selector
// matches every value in that column, mirroring the all-selected default of
// the filter widgets.
type Filter struct {
	Classificacoes []string
	Interesses     []string
}

// Apply returns the leads matching both selectors.
func (f Filter) Apply(leads []models.Lead) []models.Lead {
	out := make([]models.Lead, 0, len(leads))
	for _, lead := range leads {
		if !matches(lead.Classificacao, f.Classificacoes) {
			continue
		}
		if !matches(lead.Interesse, f.Interesses) {
			continue
		}
		out = append(out, lead)
	}
	return out
}

// matches reports whether the value is in the selector, or the selector is empty.
func matches(value string, selector []string) bool {
	if len(selector) == 0 {
		return true
	}
	for _, s := range selector {
		if s == value {
			return true
		}
	}
	return false
}

// Summary holds the count metrics derived from a filtered subset.
type Summary struct {
	Total    int `json:"total"`
	HotLeads int `json:"hot_leads"`
}

// Summarize computes the count metrics for the given leads.
func Summarize(leads []models.Lead) Summary {
	s := Summary{Total: len(leads)}
	for _, lead := range leads {
		if lead.Classificacao == models.ClassificationHot {
			s.HotLeads++
		}
	}
	return s
}

// CountBy tallies leads by the given column, preserving first-seen order of
// the values.
func CountBy(leads []models.Lead, column func(models.Lead) string) ([]string, map[string]int) {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, lead := range leads {
		v := column(lead)
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	return order, counts
}

// ByClassificacao returns the classification column of a lead.
func ByClassificacao(l models.Lead) string { return l.Classificacao }

// ByInteresse returns the interest column of a lead.
func ByInteresse(l models.Lead) string { return l.Interesse }
