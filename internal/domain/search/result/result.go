package result

import (
	"github.com/kailas-cloud/staysearch/internal/domain/search/relaxation"
	"github.com/kailas-cloud/staysearch/internal/domain/unit"
)

// Item is a single ranked search hit.
type Item struct {
	doc   *unit.Document
	score float64
}

// NewItem creates a ranked hit.
func NewItem(doc *unit.Document, score float64) Item {
	return Item{doc: doc, score: score}
}

// UnitID returns the unit identifier.
func (i *Item) UnitID() string { return i.doc.UnitID }

// Document returns the indexed unit.
func (i *Item) Document() *unit.Document { return i.doc }

// Score returns the relevance score in [0,1].
func (i *Item) Score() float64 { return i.score }

// Page is one page of search results with the tier that produced them.
type Page struct {
	items        []Item
	total        int
	page         int
	pageSize     int
	level        relaxation.Level
	explanations []string
}

// NewPage creates a result page. Total counts all ranked hits, not only items.
func NewPage(items []Item, total, page, pageSize int, level relaxation.Level, explanations []string) Page {
	return Page{
		items: items, total: total, page: page, pageSize: pageSize,
		level: level, explanations: explanations,
	}
}

// Items returns the hits on this page.
func (p *Page) Items() []Item { return p.items }

// Total returns the number of hits across all pages.
func (p *Page) Total() int { return p.total }

// Page returns the 1-based page number.
func (p *Page) Page() int { return p.page }

// PageSize returns the requested page size.
func (p *Page) PageSize() int { return p.pageSize }

// Level returns the relaxation tier that produced the hits.
func (p *Page) Level() relaxation.Level { return p.level }

// Relaxed reports whether any filter was loosened.
func (p *Page) Relaxed() bool { return p.level != relaxation.None }

// Explanations returns human-readable notes about relaxed filters.
func (p *Page) Explanations() []string { return p.explanations }
