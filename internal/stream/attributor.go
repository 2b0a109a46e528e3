package stream

import (
	"sort"
	"strings"

	"github.com/corvid-labs/agentgw/internal/domain"
)

// Attributor routes chunks to per-scope transcoders and wraps nested scopes'
// parts as data-tool-agent parts so clients can trace provenance to the
// top-level call. Parts from nested scopes interleave into the outer stream
// at the point they arrive; nothing is buffered until a scope finishes.
type Attributor struct {
	sink   Sink
	scopes map[string]*Transcoder
}

// NewAttributor creates an attributor emitting to the given sink.
func NewAttributor(sink Sink) *Attributor {
	return &Attributor{
		sink:   sink,
		scopes: make(map[string]*Transcoder),
	}
}

// Feed routes one chunk to its scope's transcoder.
func (a *Attributor) Feed(c domain.Chunk) error {
	return a.scopeFor(c.Agents).Feed(c)
}

// Finished reports whether the primary scope has emitted its terminal part.
func (a *Attributor) Finished() bool {
	primary, ok := a.scopes[""]
	return ok && primary.Finished()
}

// Interrupt force-closes all scopes, nested scopes before the primary one,
// so every wrapped stream ends with its own terminal entry.
func (a *Attributor) Interrupt() error {
	keys := make([]string, 0, len(a.scopes))
	for k := range a.scopes {
		keys = append(keys, k)
	}
	// Deepest scopes first; "" (primary) sorts to the front, so walk the
	// sorted keys backwards.
	sort.Strings(keys)
	for i := len(keys) - 1; i >= 0; i-- {
		if err := a.scopes[keys[i]].Interrupt(); err != nil {
			return err
		}
	}
	return nil
}

func (a *Attributor) scopeFor(chain []string) *Transcoder {
	key := strings.Join(chain, "/")
	if tr, ok := a.scopes[key]; ok {
		return tr
	}

	// Compose the wrapper sink innermost-first: a part from chain [o, i]
	// becomes data-tool-agent{id:o, data: data-tool-agent{id:i, data: part}}.
	sink := a.sink
	for _, id := range chain {
		sink = wrapSink(id, sink)
	}

	tr := NewTranscoder(key, sink)
	a.scopes[key] = tr
	return tr
}

func wrapSink(id string, next Sink) Sink {
	return func(p domain.Part) error {
		return next(domain.Part{
			Type: domain.PartTypeDataToolAgent,
			ID:   id,
			Data: domain.MarshalPart(p),
		})
	}
}
