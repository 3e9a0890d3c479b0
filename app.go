package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/yangzai4413/AutoSkyProject/nav"
)

// AppOptions carries the parsed CLI flags into the application.
type AppOptions struct {
	ConfigFile   string
	DatasetDir   string
	RouteFile    string
	Mode         string
	ActuatorAddr string
	HTTPPort     int
	OutputFile   string

	RunMode       bool
	SelfTest      bool
	GenerateRoute bool
	RenderMatch   string
	ActuatorCheck bool
}

// App encapsulates the application state and dependencies
type App struct {
	Config        *nav.Config
	StatusTracker *nav.StatusTracker
	MQTTClient    *nav.MQTTClient
	Publisher     *nav.Publisher

	// CLI Flags (effectively dependencies)
	ConfigFile   string
	DatasetDir   string
	RouteFile    string
	Mode         string
	ActuatorAddr string
	HTTPPort     int
	OutputFile   string
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{
		StatusTracker: nav.NewStatusTracker(),
	}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.DatasetDir = opts.DatasetDir
	a.RouteFile = opts.RouteFile
	a.Mode = opts.Mode
	a.ActuatorAddr = opts.ActuatorAddr
	a.HTTPPort = opts.HTTPPort
	a.OutputFile = opts.OutputFile
}

// LoadConfiguration reads the YAML config and layers CLI overrides on top.
// A missing config file is tolerated when the dataset directory comes from
// a flag; everything else falls back to defaults.
func (a *App) LoadConfiguration() error {
	config, err := nav.LoadConfig(a.ConfigFile)
	if err != nil {
		if a.DatasetDir == "" {
			return err
		}
		log.Printf("Warning: %v, using defaults", err)
		config = nav.DefaultConfig()
	}

	if a.DatasetDir != "" {
		config.DatasetDir = a.DatasetDir
	}
	if a.RouteFile != "" {
		config.RouteFile = a.RouteFile
	}
	if a.Mode != "" {
		config.Mode = a.Mode
	}
	if a.ActuatorAddr != "" {
		config.ActuatorAddr = a.ActuatorAddr
	}
	if a.HTTPPort > 0 {
		config.HTTPPort = a.HTTPPort
	}

	if err := config.Validate(); err != nil {
		return err
	}
	if config.DatasetDir == "" {
		return fmt.Errorf("no dataset directory configured (set dataset_dir or -dataset)")
	}

	a.Config = config
	return nil
}

// buildStore loads the route and constructs the waypoint store.
func (a *App) buildStore() *nav.WaypointStore {
	cfg := a.Config.RunnerConfig()
	waypoints := nav.LoadRoute(a.Config.EffectiveRouteFile())
	return nav.NewWaypointStore(a.Config.DatasetDir, waypoints, cfg.Preprocess, cfg.Extractor)
}

// RunSelfTest matches every waypoint against itself and reports the result.
// Returns false when any waypoint fails.
func (a *App) RunSelfTest() bool {
	store := a.buildStore()
	if store.Len() == 0 {
		fmt.Printf("No waypoints in %s\n", a.Config.EffectiveRouteFile())
		return false
	}

	results, err := nav.SelfTest(store, a.Config.RunnerConfig())
	if err != nil {
		fmt.Printf("Self-test error: %v\n", err)
		return false
	}
	return nav.ReportSelfTest(results)
}

// RunGenerateRoute scaffolds a waypoints.json from the images in the dataset.
func (a *App) RunGenerateRoute() error {
	output := a.OutputFile
	if output == "" {
		output = a.Config.EffectiveRouteFile()
	}

	if _, err := os.Stat(output); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", output)
	}

	if err := nav.GenerateRouteFile(a.Config.DatasetDir, output); err != nil {
		return err
	}
	fmt.Printf("Created: %s\n", output)
	return nil
}

// RunRenderMatch draws a feature-match diagram for one waypoint against a
// frame image. The argument has the form WAYPOINT_INDEX=FRAME_IMAGE.
func (a *App) RunRenderMatch(spec string) error {
	parts := strings.SplitN(spec, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid -render-match %q, expected INDEX=FRAME_IMAGE", spec)
	}
	index, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("invalid waypoint index %q: %w", parts[0], err)
	}
	framePath := parts[1]

	store := a.buildStore()
	if err := store.LoadWaypoint(index); err != nil {
		return err
	}
	snapshot := store.Snapshot()
	if snapshot == nil {
		return fmt.Errorf("waypoint %d has no snapshot", index)
	}

	cfg := a.Config.RunnerConfig()
	frameImg, err := loadImage(framePath)
	if err != nil {
		return err
	}
	gray := nav.Preprocess(frameImg, cfg.Preprocess)
	frameKP, frameDesc := nav.Extract(gray, cfg.Extractor)
	matches := nav.MatchDescriptors(snapshot.Descriptors, frameDesc, cfg.Matcher)

	output := a.OutputFile
	if output == "" {
		output = fmt.Sprintf("match_%d.svg", index)
	}

	// A .png output gets the raster tick overlay drawn on the frame itself;
	// anything else gets the side-by-side vector diagram.
	if strings.EqualFold(filepath.Ext(output), ".png") {
		waypoint, _ := store.Current()
		offset, similarity := nav.Estimate(snapshot.Keypoints, frameKP, matches,
			cfg.Estimator.Normalizer(cfg.Preprocess.Mode))
		overlay := nav.TickOverlay{
			Frame:      gray,
			Keypoints:  frameKP,
			Matches:    matches,
			Offset:     offset,
			Similarity: similarity,
			Waypoint:   waypoint,
			Index:      index,
			State:      nav.StateCalibrating,
		}
		if err := nav.NewOverlayRenderer().RenderPNG(output, overlay); err != nil {
			return err
		}
	} else {
		bounds := gray.Bounds()
		renderer := nav.NewMatchRenderer(snapshot, frameKP, bounds.Dx(), bounds.Dy(), matches)
		if err := renderer.RenderFile(output); err != nil {
			return err
		}
	}
	fmt.Printf("Created: %s (%d keypoints vs %d, %d matches)\n",
		output, len(snapshot.Keypoints), len(frameKP), len(matches))
	return nil
}

// RunActuatorCheck fires each actuator primitive once against the input
// bridge so the operator can verify the agent responds.
func (a *App) RunActuatorCheck() error {
	if a.Config.ActuatorAddr == "" {
		return fmt.Errorf("no actuator address configured (set actuator_addr or -actuator)")
	}
	act, err := nav.NewUDPActuator(a.Config.ActuatorAddr)
	if err != nil {
		return err
	}
	defer act.Close()

	fmt.Printf("Exercising actuator at %s...\n", a.Config.ActuatorAddr)
	nav.SelfCheck(act, time.Sleep)
	fmt.Println("Actuator check complete")
	return nil
}

// RunNavigation runs the full navigation loop until a terminal outcome or
// an interrupt signal.
func (a *App) RunNavigation() (nav.Outcome, error) {
	store := a.buildStore()
	cfg := a.Config.RunnerConfig()

	capture, err := nav.NewDatasetCapture(a.framesDir())
	if err != nil {
		return nav.OutcomeError, err
	}

	act, err := nav.NewUDPActuator(a.Config.ActuatorAddr)
	if err != nil {
		return nav.OutcomeError, err
	}
	defer act.Close()
	if a.Config.ActuatorAddr == "" {
		fmt.Println("No actuator configured, running dry (commands discarded)")
	}

	runner := nav.NewRunner(cfg, store, capture, act)
	fmt.Printf("Run %s: %d waypoints, mode=%s, tick=%s\n",
		runner.RunID(), store.Len(), a.Config.Mode, cfg.TickInterval)

	// Status consumers. MQTT relays and tracks; otherwise track only.
	mqttClient, err := nav.InitMQTT(a.Config.MQTT)
	if err != nil {
		log.Printf("Warning: MQTT unavailable: %v", err)
	}
	a.MQTTClient = mqttClient

	if mqttClient != nil {
		a.Publisher = nav.NewPublisher(mqttClient.GetClient(), a.Config.MQTT.PublishPrefix)
		go a.Publisher.Relay(runner.Status(), a.StatusTracker)
	} else {
		go a.StatusTracker.Consume(runner.Status())
	}

	// HTTP status API.
	if a.Config.HTTPPort > 0 {
		httpServer := newHTTPServer(a.StatusTracker, runner, a.Config)
		go func() {
			addr := fmt.Sprintf("0.0.0.0:%d", a.Config.HTTPPort)
			log.Printf("[HTTP] Starting server on %s", addr)
			if err := http.ListenAndServe(addr, httpServer); err != nil {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	// SIGINT/SIGTERM cancels the loop at the next tick boundary.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig, ok := <-sigChan
		if ok {
			fmt.Printf("\nReceived %v, stopping...\n", sig)
			cancel()
		}
	}()

	outcome, err := runner.Run(ctx)

	if a.Publisher != nil {
		if pubErr := a.Publisher.PublishOutcome(runner.RunID(), outcome); pubErr != nil {
			log.Printf("Error publishing outcome: %v", pubErr)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}

	fmt.Printf("Run %s finished: %s\n", runner.RunID(), outcome)
	return outcome, err
}

// framesDir picks the replay frame source: a frames/ subdirectory when the
// dataset has one, else the dataset directory itself.
func (a *App) framesDir() string {
	sub := filepath.Join(a.Config.DatasetDir, "frames")
	if info, err := os.Stat(sub); err == nil && info.IsDir() {
		return sub
	}
	return a.Config.DatasetDir
}

// loadImage decodes a single image file.
func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}
