package main

import (
	"context"
	"fmt"
	"os"

	"bisky/internal/core"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, core.SystemClock)
	if err := a.execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
