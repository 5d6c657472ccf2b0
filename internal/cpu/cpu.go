// Package cpu pins worker goroutines to OS threads and cores.
package cpu

import "runtime"

// Count returns the number of logical CPUs usable by workers.
func Count() int {
	return runtime.GOMAXPROCS(0)
}
