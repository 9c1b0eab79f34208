// Command articles is a small terminal client for the article service,
// backed by the synchronization layer: reads come from the query cache,
// writes invalidate it, and the session persists between invocations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
