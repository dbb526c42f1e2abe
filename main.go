/*
Example application driving the engine package: the shapes scene from
testbed rendered through the frame-pipelined renderer.
*/
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/kilnworks/vetro/engine"
	"github.com/kilnworks/vetro/testbed"
)

func main() {
	config, err := engine.LoadApplicationConfig("assets/config.toml")
	if err != nil {
		panic(err)
	}

	tb := testbed.NewTestGame(config)

	eng, err := engine.New(tb.Game)
	if err != nil {
		panic(err)
	}

	if err := eng.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = eng.Shutdown()
	}()

	// run engine
	if err := eng.Run(); err != nil {
		panic(err)
	}
}
