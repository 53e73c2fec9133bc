// Package service implements a small self-contained recall backend used by
// the demo serve command and by tests: knowledge items loaded from a YAML
// file into an in-memory bleve full-text index, exposed over HTTP and over
// MCP stdio. It is a stand-in for a real recall deployment, not one.
package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"gopkg.in/yaml.v3"

	"github.com/recallq/recallq/internal/recall"
)

// Item is one knowledge entry: a pattern, a decision record, or a known
// failure.
type Item struct {
	ID      string          `yaml:"id" json:"id"`
	Type    recall.ItemType `yaml:"type" json:"type"`
	Title   string          `yaml:"title" json:"title"`
	Content string          `yaml:"content" json:"content"`
	Tags    []string        `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// itemsFile is the YAML document shape for LoadItems.
type itemsFile struct {
	Items []Item `yaml:"items"`
}

// indexedItem is the document shape handed to bleve.
type indexedItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

// Index is an in-memory full-text index over knowledge items.
// Thread-safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	items map[string]Item
}

// NewIndex creates an empty in-memory index.
func NewIndex() (*Index, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Index{
		index: idx,
		items: make(map[string]Item),
	}, nil
}

// LoadItems reads knowledge items from a YAML file.
func LoadItems(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items file: %w", err)
	}

	var doc itemsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse items file: %w", err)
	}

	for i, item := range doc.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("item %d has no id", i)
		}
		if item.Type == "" {
			doc.Items[i].Type = recall.ItemPattern
		}
	}

	return doc.Items, nil
}

// Add indexes items in one batch. Re-adding an ID replaces it.
func (ix *Index) Add(items ...Item) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.index.NewBatch()
	for _, item := range items {
		doc := indexedItem{
			Title:   item.Title,
			Content: item.Content,
			Tags:    strings.Join(item.Tags, " "),
		}
		if err := batch.Index(item.ID, doc); err != nil {
			return fmt.Errorf("failed to index item %s: %w", item.ID, err)
		}
		ix.items[item.ID] = item
	}

	if err := ix.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Search runs a full-text match query and returns scored items, best
// match first. An empty or whitespace query returns no results.
func (ix *Index) Search(ctx context.Context, query string, limit int) (recall.Results, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		return recall.Results{}, nil
	}
	if limit <= 0 {
		limit = recall.DefaultLimit
	}

	matchQuery := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit

	result, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make(recall.Results, 0, len(result.Hits))
	for _, hit := range result.Hits {
		item, ok := ix.items[hit.ID]
		if !ok {
			continue
		}
		results = append(results, recall.Result{
			ID:      item.ID,
			Type:    item.Type,
			Title:   item.Title,
			Content: item.Content,
			Tags:    item.Tags,
			Score:   hit.Score,
		})
	}

	return results, nil
}

// Count returns the number of indexed items.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.items)
}

// Close releases the underlying index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}
