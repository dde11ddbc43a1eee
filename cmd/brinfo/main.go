// Command brinfo drives the static Meta-Collector, Source Instrumenter,
// Invocation Auto-Wrapper, and the optional debug-inspection server over a
// C/C++ project tree.
package main

import (
	"log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("brinfo: %v", err)
	}
}
