// Command handlestat drives engines with a synthetic host workload and
// reports handle registry statistics.
//
//	handlestat run --engines 4 --ops 20000
//	handlestat run -i                      live dashboard
//	handlestat run --listen :9464 --hold   serve /metrics and /stats
//	handlestat config                      print the effective config
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
