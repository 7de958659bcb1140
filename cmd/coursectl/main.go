// Command coursectl works with the course assistant from a terminal: ask
// questions, check how phrases resolve, and manage the course-code catalog.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
