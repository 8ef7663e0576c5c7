// Command motortest reduces rocket motor static-fire test data.
//
//	motortest process motor test1.dat
//	motortest report session ./2015/feb
//	motortest bundle session . --silent
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, newApp(os.Stdout, os.Stderr), os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes one command line. Errors are reported through the logger
// once it exists, and on stderr before that.
func run(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		if a.log != nil {
			a.log.Error(err.Error())
		} else {
			fmt.Fprintln(a.stderr, "motortest:", err)
		}
	}
	return errors.Join(err, a.close())
}
