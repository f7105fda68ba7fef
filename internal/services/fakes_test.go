package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// scriptedLLM replays replies in order; the last one repeats.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []scriptedReply
	prompts []string
	calls   atomic.Int32
}

type scriptedReply struct {
	text string
	err  error
	// block until ctx is done
	hang bool
}

func newScriptedLLM(replies ...scriptedReply) *scriptedLLM {
	return &scriptedLLM{replies: replies}
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	n := int(s.calls.Add(1)) - 1

	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	reply := s.replies[min(n, len(s.replies)-1)]
	s.mu.Unlock()

	if reply.hang {
		<-ctx.Done()
		return "", classifyError(s.Provider(), 0, "", ctx.Err())
	}
	return reply.text, reply.err
}

func (s *scriptedLLM) Provider() string {
	return "fake"
}

func (s *scriptedLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

type stubLoader struct {
	content *DocumentContent
	err     error
}

func (l *stubLoader) ExtractText(ctx context.Context, data []byte, filename string) (*DocumentContent, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.content, nil
}

// counterValue sums the counter samples of name whose labels include want.
func counterValue(reg *prometheus.Registry, name string, want map[string]string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue metrics
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
