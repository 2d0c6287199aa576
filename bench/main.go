package main

import (
	"context"
	_ "embed"
	"expvar"
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	flagdecide "github.com/flagdecide/go-server-sdk"
	"github.com/flagdecide/go-server-sdk/api"
	"github.com/flagdecide/go-server-sdk/util"
)

//go:embed testdata/datafile.json
var test_datafile []byte

func main() {
	var datafilePath, flagKey, logLevel, listenAddr string
	var users, workers, bucketCacheSize int
	var enableEvents bool

	flag.StringVar(&datafilePath, "datafile", "", "path to a datafile (defaults to the embedded one)")
	flag.StringVar(&flagKey, "flag", "buy_button", "flag key to decide")
	flag.IntVar(&users, "users", 1_000_000, "number of synthetic users")
	flag.IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "number of deciding goroutines")
	flag.IntVar(&bucketCacheSize, "bucket-cache", 0, "bucket memoization size (0 disables)")
	flag.BoolVar(&enableEvents, "enable-events", false, "queue decision events to a logging dispatcher")
	flag.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flag.StringVar(&listenAddr, "listen", "", "[host]:port serving pprof, expvar and /metrics while running")
	flag.Parse()

	logger := util.NewJSONLogger(os.Stderr, logLevel)
	reg := prometheus.NewRegistry()
	metrics, err := flagdecide.NewMetrics(reg)
	if err != nil {
		log.Fatalf("Error registering metrics: %v", err)
	}

	options := &flagdecide.Options{
		Logger:                       logger,
		BucketCacheSize:              bucketCacheSize,
		DisableAutomaticEventLogging: !enableEvents,
		DisableCustomEventLogging:    !enableEvents,
		EvalHooks:                    []*flagdecide.EvalHook{metrics.Hook()},
	}
	if enableEvents {
		options.EventDispatcher = flagdecide.LogEventDispatcher{}
	}

	var client *flagdecide.Client
	if datafilePath != "" {
		client, err = flagdecide.NewClientFromFile(datafilePath, options)
	} else {
		client, err = flagdecide.NewClient(test_datafile, options)
	}
	if err != nil {
		log.Fatalf("Error setting up client: %v", err)
	}
	if err := metrics.RegisterEventMetrics(reg, client); err != nil {
		log.Fatalf("Error registering event metrics: %v", err)
	}

	var decided, enabled atomic.Int64
	expvar.Publish("goroutines", expvar.Func(func() interface{} {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("decided", expvar.Func(func() interface{} {
		return decided.Load()
	}))

	if listenAddr != "" {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logger.Infof("HTTP server listening on %s", listenAddr)
			logger.Errorf("HTTP server stopped: %v", http.ListenAndServe(listenAddr, nil))
		}()
	}

	start := time.Now()
	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := w; i < users; i += workers {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				userContext := client.CreateUserContext(fmt.Sprintf("user%d", i), nil)
				decision, err := userContext.Decide(flagKey, api.DecideOptions{})
				if err != nil {
					return err
				}
				decided.Add(1)
				if decision.Enabled {
					enabled.Add(1)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Error deciding %s: %v", flagKey, err)
	}
	elapsed := time.Since(start)

	if err := client.Close(context.Background()); err != nil {
		logger.Warnf("Error closing client: %v", err)
	}

	logger.Infof("Decided %s for %d users in %s (%.0f decisions/s, %d enabled)",
		flagKey, decided.Load(), elapsed, float64(decided.Load())/elapsed.Seconds(), enabled.Load())
}
