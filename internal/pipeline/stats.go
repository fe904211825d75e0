package pipeline

import "sync"

// statsCollector accumulates Stats across the concurrent READ and PARSE
// worker pools; COLLECT and INDEX are single-threaded and may update the
// wrapped Stats directly under the same lock for uniformity.
type statsCollector struct {
	mu sync.Mutex
	s  Stats
}

func (c *statsCollector) addDiscovered(n int) {
	c.mu.Lock()
	c.s.FilesDiscovered += n
	c.mu.Unlock()
}

func (c *statsCollector) addRead(n int) {
	c.mu.Lock()
	c.s.FilesRead += n
	c.mu.Unlock()
}

func (c *statsCollector) addParsed(n int) {
	c.mu.Lock()
	c.s.FilesParsed += n
	c.mu.Unlock()
}

func (c *statsCollector) addSkipped(n int) {
	c.mu.Lock()
	c.s.FilesSkipped += n
	c.mu.Unlock()
}

func (c *statsCollector) addSymbols(n int) {
	c.mu.Lock()
	c.s.SymbolsIndexed += n
	c.mu.Unlock()
}

func (c *statsCollector) addRelationships(n int) {
	c.mu.Lock()
	c.s.RelationshipsStored += n
	c.mu.Unlock()
}

func (c *statsCollector) addError(n int) {
	c.mu.Lock()
	c.s.Errors += n
	c.mu.Unlock()
}

func (c *statsCollector) addWarning(n int) {
	c.mu.Lock()
	c.s.Warnings += n
	c.mu.Unlock()
}

func (c *statsCollector) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}
