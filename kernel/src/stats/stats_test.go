package stats

import (
	"strings"
	"sync"
	"testing"
)

func TestCounterIncAndAdd(t *testing.T) {
	var c Counter_t
	c.Inc()
	c.Add(4)
	if got := c.Get(); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestCounterConcurrentInc(t *testing.T) {
	var c Counter_t
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()
	if got := c.Get(); got != 100 {
		t.Fatalf("got %d, want 100", got)
	}
}

type sampleStats struct {
	Ticks  Counter_t
	Yields Counter_t
	Label  string
}

func TestStats2StringListsCounterFields(t *testing.T) {
	s := sampleStats{}
	s.Ticks.Add(3)
	s.Yields.Add(7)

	out := Stats2String(s)
	if !strings.Contains(out, "Ticks: 3") {
		t.Fatalf("missing Ticks in %q", out)
	}
	if !strings.Contains(out, "Yields: 7") {
		t.Fatalf("missing Yields in %q", out)
	}
	if strings.Contains(out, "Label") {
		t.Fatalf("non-Counter_t field should be skipped: %q", out)
	}
}
