package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ngaut/log"
	"github.com/spf13/cobra"
)

var (
	globalContext context.Context
	globalCancel  context.CancelFunc
)

func main() {
	globalContext, globalCancel = context.WithCancel(context.Background())

	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	closeDone := make(chan struct{}, 1)
	go func() {
		select {
		case sig := <-sc:
			log.Infof("Got signal [%v] to exit.", sig)
			globalCancel()
		case <-closeDone:
			return
		}

		select {
		case <-sc:
			os.Exit(1)
		case <-time.After(10 * time.Second):
			fmt.Print("\nWait 10s for closed, force exit\n")
			os.Exit(1)
		case <-closeDone:
			return
		}
	}()

	rootCmd := &cobra.Command{
		Use:   "tempstore-bench",
		Short: "Exercise transaction staging buffers",
	}
	rootCmd.AddCommand(newStageCommand())

	exitCode := 0
	if err := rootCmd.Execute(); err != nil {
		exitCode = 1
	}
	globalCancel()
	closeDone <- struct{}{}
	os.Exit(exitCode)
}
