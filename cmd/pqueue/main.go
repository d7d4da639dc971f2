// cmd/pqueue/main.go
//
// pqueue - a tiny demo CLI around the persistent blocking queue.
//
// Usage:
//
//	pqueue <queue-dir> put <text>
//	pqueue <queue-dir> take
//
// put appends a line of text; take blocks (up to 5s) for the next one
// and prints it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/huiyu/persistentqueue/pkg/queue"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: pqueue <queue-dir> put <text> | pqueue <queue-dir> take")
		os.Exit(1)
	}

	dir, cmd := os.Args[1], os.Args[2]

	q, err := queue.Open(queue.Options{
		Directory:  dir,
		Serializer: queue.BytesSerializer{},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening queue: %v\n", err)
		os.Exit(1)
	}
	defer q.Close()

	switch cmd {
	case "put":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "usage: pqueue <queue-dir> put <text>")
			os.Exit(1)
		}
		if err := q.Put(context.Background(), []byte(os.Args[3])); err != nil {
			fmt.Fprintf(os.Stderr, "error putting element: %v\n", err)
			os.Exit(1)
		}
	case "take":
		v, _, err := q.PollTimeout(context.Background(), 5*time.Second)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error taking element: %v\n", err)
			os.Exit(1)
		}
		if v == nil {
			fmt.Fprintln(os.Stderr, "no element available within timeout")
			os.Exit(1)
		}
		fmt.Println(string(v.([]byte)))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(1)
	}
}
