// Command tillctl is the operator CLI for a till database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tillctl:", err)
		os.Exit(1)
	}
}
