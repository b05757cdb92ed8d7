// Command picpipe resizes, recompresses, uploads and samples images, either
// from the command line or as an HTTP service.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
