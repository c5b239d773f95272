package device

import (
	"defs"
	"stat"
)

/// Null_t is the /devices/null sink: reads return zero bytes, writes
/// are discarded and report success.
type Null_t struct{}

func (Null_t) Read(buf []byte) (int, defs.Err_t)  { return 0, 0 }
func (Null_t) Write(buf []byte) (int, defs.Err_t) { return len(buf), 0 }
func (Null_t) Close()                             {}
func (Null_t) GetInfo() stat.Info_t {
	var st stat.Info_t
	st.Wtype(uint(defs.OTYPE_DEVICE))
	return st
}
