package oracle

import (
	"sync"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// parserPool recycles tree-sitter parsers for one grammar.
//
//	sp := pool.Get()
//	defer pool.Put(sp)
//	tree := sp.Parse(source, nil)
type parserPool struct {
	lang *sitter.Language
	pool sync.Pool

	leases   map[*sitter.Parser]time.Time
	leasesMu sync.Mutex
}

func newParserPool(lang *sitter.Language) *parserPool {
	p := &parserPool{
		lang:   lang,
		leases: make(map[*sitter.Parser]time.Time),
	}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			_ = sp.SetLanguage(lang)
			return sp
		},
	}
	return p
}

// Get returns a parser configured for the pool's grammar.
func (p *parserPool) Get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	_ = sp.SetLanguage(p.lang)

	p.leasesMu.Lock()
	p.leases[sp] = time.Now()
	p.leasesMu.Unlock()
	return sp
}

// Put resets sp and returns it to the pool. Callers must not use sp after.
func (p *parserPool) Put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.leasesMu.Lock()
	delete(p.leases, sp)
	p.leasesMu.Unlock()

	sp.Reset()
	p.pool.Put(sp)
}

// Leased returns the number of parsers currently checked out.
func (p *parserPool) Leased() int {
	p.leasesMu.Lock()
	defer p.leasesMu.Unlock()
	return len(p.leases)
}
