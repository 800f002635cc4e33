// Command swapgraph finds disjoint multi-party barter cycles among trade
// intents. See "swapgraph --help".
package main

import (
	"context"
	"os"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
