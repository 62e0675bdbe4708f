// Command hosting-emissions estimates the carbon footprint of hosted
// workloads. It serves the JSON API and offers one-shot CLI access to the
// calculator and the run history.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[hosting-emissions] Error: %v\n", err)
		os.Exit(1)
	}
}
