// Command nucleus boots one instance of the simulated kernel core and
// spawns a trivial root thread, as a smoke test that every subsystem
// wires together: PMM, namespace, devices, scheduler.
package main

import (
	"fmt"
	"os"

	"kernel"
	"proc"
	"rights"
	"ustr"
)

func main() {
	k := kernel.Boot(kernel.DefaultConfig)

	done := make(chan struct{})
	_, _, err := k.SpawnRoot(func(t *proc.Thread) {
		defer close(done)
		console, e := k.NS.Lookup(ustr.Ustr("/devices/console"))
		if e != 0 {
			fmt.Fprintln(os.Stderr, "lookup console:", e)
			return
		}
		defer console.Deref()
		h := t.Proc.Handles.Grant(console, rights.Default)
		defer t.Proc.Handles.Close(h)

		msg := []byte("nucleus: root thread running\n")
		if _, e := console.Ops.Write(msg); e != 0 {
			fmt.Fprintln(os.Stderr, "write console:", e)
		}
		t.Yield(k.Sched)
	})
	if err != 0 {
		fmt.Fprintln(os.Stderr, "spawn root:", err)
		os.Exit(1)
	}

	go func() {
		<-done
		k.Shutdown()
	}()
	k.Run()
}
