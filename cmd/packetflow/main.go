// Command packetflow serves the packet flow and congestion window diagrams
// and runs them headless.
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	if err := Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
