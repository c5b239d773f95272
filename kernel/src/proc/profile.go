package proc

import (
	"io"

	"github.com/google/pprof/profile"
)

/// ProfileCPU renders every process's accumulated user+system time as a
/// pprof CPU profile, one sample per process, so the accounting held in
/// each process's accnt.Accnt_t can be inspected with the standard
/// `pprof` tool instead of a bespoke dump format. The scheduler does
/// not charge Accnt on context switches, so each sample is whatever
/// Userns+Sysns hold when the profile is taken.
func ProfileCPU(w io.Writer) error {
	processesMu.Lock()
	procs := make([]*Process, 0, len(processes))
	for _, p := range processes {
		procs = append(procs, p)
	}
	processesMu.Unlock()

	prof := &profile.Profile{
		SampleType: []*profile.ValueType{{Type: "cpu", Unit: "nanoseconds"}},
		PeriodType: &profile.ValueType{Type: "cpu", Unit: "nanoseconds"},
		Period:     1,
	}

	fn := &profile.Function{ID: 1, Name: "process"}
	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn}}}
	prof.Function = []*profile.Function{fn}
	prof.Location = []*profile.Location{loc}

	for i, p := range procs {
		p.Accnt.Lock()
		total := p.Accnt.Userns + p.Accnt.Sysns
		p.Accnt.Unlock()
		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{total},
			Label:    map[string][]string{"pid": {itoa(int64(p.Pid))}},
			NumUnit:  map[string][]string{"pid": {"id"}},
			NumLabel: nil,
		})
		_ = i
	}

	return prof.Write(w)
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
