// Package stats holds always-on diagnostic counters for the scheduler
// and syscall dispatch path. biscuit gates these behind Stats/Timing
// consts backed by a hardware cycle counter (runtime.Rdtsc, a biscuit
// fork-only primitive with no stand-in on a simulated single CPU); a
// hosted simulation has no honest cycle count to report, so that half
// is dropped and Counter_t simply always counts.
package stats

import (
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
)

/// Counter_t is a monotonic, concurrency-safe event counter.
type Counter_t int64

/// Inc increments the counter by one.
func (c *Counter_t) Inc() {
	atomic.AddInt64((*int64)(c), 1)
}

/// Add increments the counter by n.
func (c *Counter_t) Add(n int64) {
	atomic.AddInt64((*int64)(c), n)
}

/// Get returns the counter's current value.
func (c *Counter_t) Get() int64 {
	return atomic.LoadInt64((*int64)(c))
}

/// Stats2String renders every Counter_t field of st as a line of text,
/// for dumping a stats struct (e.g. a scheduler's tick/switch/preempt
/// counters) to a log.
func Stats2String(st interface{}) string {
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		if strings.HasSuffix(t, "Counter_t") {
			n := v.Field(i).Interface().(Counter_t)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
	}
	return s + "\n"
}
