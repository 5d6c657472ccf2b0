//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore restricts the calling OS thread to a single core.
// Must be called after runtime.LockOSThread().
// Out-of-range ids wrap around the available cores.
func pinToCore(cpuID int) (int, error) {
	n := runtime.NumCPU()
	cpuID %= n
	if cpuID < 0 {
		cpuID += n
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	// 0 = current thread
	if err := unix.SchedSetaffinity(0, &mask); err != nil {
		return -1, err
	}
	return cpuID, nil
}

// Pin locks the calling goroutine to its OS thread and pins that thread to
// core workerID mod NumCPU. The returned func undoes the thread lock and must
// be deferred by the worker. Pinning failures are reported but the thread
// lock stays in place so the release func is always safe to call.
func Pin(workerID int) (release func(), core int, err error) {
	runtime.LockOSThread()
	core, err = pinToCore(workerID)
	return runtime.UnlockOSThread, core, err
}
