package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/arthur-debert/tablepatch/cmd/tablepatch"
	"github.com/arthur-debert/tablepatch/internal/version"
)

func main() {
	header := &doc.GenManHeader{
		Title:   "TABLEPATCH",
		Section: "1",
		Source:  "tablepatch " + version.Version,
		Manual:  "tablepatch manual",
	}

	if err := doc.GenMan(tablepatch.NewRootCmd(), header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
