// Command tabletop runs the interaction hub of the tangible tabletop: it
// receives marker tracking records and hand frames from the collaborator
// processes over UDP, translates them into semantic interaction events, and
// broadcasts those events to TCP subscribers as newline-delimited JSON.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/tabletop/internal/api"
	"github.com/banshee-data/tabletop/internal/config"
	"github.com/banshee-data/tabletop/internal/gesture"
	"github.com/banshee-data/tabletop/internal/hub"
	"github.com/banshee-data/tabletop/internal/tangible"
)

var (
	listen      = flag.String("listen", "", "Event stream TCP listen address (default from TABLETOP_EVENT_LISTEN)")
	trackListen = flag.String("track", "", "Tracking UDP listen address (default from TABLETOP_TRACK_LISTEN)")
	handListen  = flag.String("hand", "", "Hand-frame UDP listen address (default from TABLETOP_HAND_LISTEN)")
	adminListen = flag.String("admin", "", "Admin HTTP listen address (default from TABLETOP_ADMIN_LISTEN)")
	configPath  = flag.String("config", "", "Path to a tuning JSON file (optional)")
)

const subscriberWriteTimeout = time.Second

func main() {
	flag.Parse()

	addrs, err := config.LoadAddresses()
	if err != nil {
		log.Fatalf("Failed to load addresses: %v", err)
	}
	if *listen != "" {
		addrs.EventListen = *listen
	}
	if *trackListen != "" {
		addrs.TrackListen = *trackListen
	}
	if *handListen != "" {
		addrs.HandListen = *handListen
	}
	if *adminListen != "" {
		addrs.AdminListen = *adminListen
	}

	tuning := config.EmptyTuning()
	if *configPath != "" {
		tuning, err = config.LoadTuning(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		log.Printf("Loaded tuning config from %s", *configPath)
	}

	broadcast := hub.New(hub.HubConfig{WriteTimeout: subscriberWriteTimeout})

	registry := tangible.NewRegistry()
	engine := tangible.NewEngine(registry, broadcast, tangible.EngineConfig{
		Medications:        tuning.GetMedications(),
		ProximityThreshold: tuning.GetProximityThreshold(),
		HoverInterval:      tuning.GetHoverInterval(),
	})
	intake := tangible.NewUDPIntake(addrs.TrackListen, engine)

	controller := gesture.NewTimeController(broadcast, gesture.TimeControllerConfig{
		BaseMinutes:          tuning.GetBaseMinutes(),
		MaxAdjustmentMinutes: tuning.GetMaxAdjustmentMinutes(),
		UpdateInterval:       tuning.GetUpdateInterval(),
	})
	recognizer := gesture.NewRecognizer(gesture.RecognizerConfig{
		ResamplePoints: tuning.GetResamplePoints(),
		Acceptance:     tuning.GetGestureAcceptance(),
	})
	frames := gesture.NewUDPFrameSource(addrs.HandListen)
	defer frames.Close()
	pipeline := gesture.NewPipeline(frames, engine, controller, recognizer, broadcast, gesture.PipelineConfig{
		RetryBackoff: tuning.GetRetryBackoff(),
	})

	// The event port is the system's contract with its consumers; failing to
	// bind it is fatal before any goroutines start.
	acceptor := hub.NewAcceptor(addrs.EventListen, broadcast)
	if err := acceptor.Listen(); err != nil {
		log.Fatalf("Failed to bind event listener: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// accept and track event-stream subscribers
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := acceptor.Serve(ctx); err != nil && err != context.Canceled {
			log.Printf("acceptor terminated: %v", err)
		}
		log.Print("acceptor routine terminated")
	}()

	// receive tracking records and run them through the interaction engine
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := intake.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("tracking intake terminated: %v", err)
		}
		log.Print("tracking intake routine terminated")
	}()

	// run the gesture pipeline against the hand-frame source
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pipeline.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("gesture pipeline terminated: %v", err)
		}
		log.Print("gesture pipeline routine terminated")
	}()

	// serve the admin HTTP surface
	adminServer := api.NewServer(broadcast, registry, engine, tuning)
	httpServer := &http.Server{
		Addr:    addrs.AdminListen,
		Handler: api.LoggingMiddleware(adminServer.ServeMux()),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Admin interface listening on %s", addrs.AdminListen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("admin server terminated: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("admin server shutdown: %v", err)
	}

	wg.Wait()
	log.Print("Shutdown complete")
}
