package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fulldump/box"

	"github.com/fulldump/snaptable/configuration"
	"github.com/fulldump/snaptable/registry"
	"github.com/fulldump/snaptable/snapshotsvc"
)

var VERSION = "dev"

// Bootstrap wires a registry of tables behind the HTTP operational
// API and returns start/stop hooks, exactly the shape of the
// teacher's bootstrap.Bootstrap (box router over net/http, signal
// handling on SIGTERM/SIGINT).
func Bootstrap(c *configuration.Configuration) (start, stop func()) {

	r := registry.New(c.BlockCapacity)

	b := box.NewBox()
	snapshotsvc.Build(b, r)
	b.WithInterceptors(
		snapshotsvc.AccessLog(log.New(os.Stdout, "ACCESS: ", log.Lshortfile)),
		snapshotsvc.RecoverFromPanic,
	)

	s := &http.Server{
		Addr:    c.HttpAddr,
		Handler: box.Box2Http(b),
	}

	ln, err := net.Listen("tcp", c.HttpAddr)
	if err != nil {
		log.Println("ERROR:", err.Error())
		os.Exit(-1)
	}
	log.Println("listening on", c.HttpAddr)

	stop = func() {
		s.Shutdown(context.Background())
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		for {
			sig := <-signalChan
			fmt.Println("Signal received", sig.String())
			stop()
		}
	}()

	start = func() {
		wg := &sync.WaitGroup{}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Serve(ln); err != nil {
				fmt.Println(err.Error())
			}
		}()

		wg.Wait()
	}

	return
}
