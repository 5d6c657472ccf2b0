//go:build !linux

package cpu

import "runtime"

// Pin locks the goroutine to an OS thread.
// Core pinning is only implemented on Linux; core is always -1 here.
func Pin(workerID int) (release func(), core int, err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, -1, nil
}
