// Command scorectl inspects and edits stored trackers using the bot's
// configuration and cache backend.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "scorectl:", err)
		os.Exit(1)
	}
}
