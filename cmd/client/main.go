// Command client performs the liveness handshake against a cliquefs server
// and prints the reply.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/cliquefs/internal/server/liveness"
)

func main() {
	addr := flag.String("a", "localhost:7070", "liveness address of the server")
	timeout := flag.Duration("t", 5*time.Second, "handshake timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := liveness.Ping(ctx, *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Print(reply)
}
