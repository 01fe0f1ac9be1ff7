// Command bulkflow loads delimited records into bulk endpoints and demonstrates
// rate adaptation between a fast and a slow signal.
//
//	bulkflow ingest --file vikings.csv --endpoint localhost:9200 --endpoint localhost:9201
//	bulkflow conflate --fast 1s --slow 3s --limit 10
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
