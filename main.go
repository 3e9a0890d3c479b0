package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/yangzai4413/AutoSkyProject/nav"
)

// Version is set at build time via -ldflags
var Version = "dev"

// appRunner is the surface main drives, mockable in tests.
type appRunner interface {
	ApplyOptions(opts AppOptions)
	LoadConfiguration() error
	RunSelfTest() bool
	RunGenerateRoute() error
	RunRenderMatch(spec string) error
	RunActuatorCheck() error
	RunNavigation() (nav.Outcome, error)
}

func main() {
	app := NewApp()
	code, err := run(os.Args[1:], os.Stdout, app)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

// run parses CLI flags and dispatches to the requested mode.
// It returns the process exit code.
func run(args []string, out io.Writer, app appRunner) (int, error) {
	fs := flag.NewFlagSet("autosky", flag.ContinueOnError)
	fs.SetOutput(out)

	configFile := fs.String("config", "config.yaml", "Path to configuration file")
	datasetDir := fs.String("dataset", "", "Waypoint dataset directory (overrides config)")
	routeFile := fs.String("route", "", "Route JSON file (default: <dataset>/waypoints.json)")
	mode := fs.String("mode", "", "Preprocess mode: raw_gray or edge (overrides config)")
	actuatorAddr := fs.String("actuator", "", "UDP address of the input bridge (overrides config)")
	httpPort := fs.Int("http-port", 0, "HTTP status API port (overrides config)")
	outputFile := fs.String("output", "", "Output file for -render-match and -generate-route")

	runMode := fs.Bool("run", false, "Run the navigation loop")
	selfTest := fs.Bool("selftest", false, "Self-match every waypoint and exit")
	generateRoute := fs.Bool("generate-route", false, "Scaffold waypoints.json from the dataset and exit")
	renderMatch := fs.String("render-match", "", "Render feature matches: WAYPOINT_INDEX=FRAME_IMAGE")
	actuatorCheck := fs.Bool("actuator-check", false, "Exercise each actuator primitive once and exit")

	if err := fs.Parse(args); err != nil {
		return 2, err
	}

	fmt.Fprintf(out, "autosky version: %s\n", Version)

	app.ApplyOptions(AppOptions{
		ConfigFile:    *configFile,
		DatasetDir:    *datasetDir,
		RouteFile:     *routeFile,
		Mode:          *mode,
		ActuatorAddr:  *actuatorAddr,
		HTTPPort:      *httpPort,
		OutputFile:    *outputFile,
		RunMode:       *runMode,
		SelfTest:      *selfTest,
		GenerateRoute: *generateRoute,
		RenderMatch:   *renderMatch,
		ActuatorCheck: *actuatorCheck,
	})

	if err := app.LoadConfiguration(); err != nil {
		return 1, fmt.Errorf("configuration: %w", err)
	}

	if *selfTest {
		if !app.RunSelfTest() {
			return 1, nil
		}
		return 0, nil
	}

	if *generateRoute {
		if err := app.RunGenerateRoute(); err != nil {
			return 1, fmt.Errorf("route generation: %w", err)
		}
		return 0, nil
	}

	if *renderMatch != "" {
		if err := app.RunRenderMatch(*renderMatch); err != nil {
			return 1, fmt.Errorf("render: %w", err)
		}
		return 0, nil
	}

	if *actuatorCheck {
		if err := app.RunActuatorCheck(); err != nil {
			return 1, fmt.Errorf("actuator check: %w", err)
		}
		return 0, nil
	}

	if *runMode {
		outcome, err := app.RunNavigation()
		if err != nil {
			return exitCode(outcome), fmt.Errorf("navigation: %w", err)
		}
		return exitCode(outcome), nil
	}

	fmt.Fprintln(out, "autosky visual waypoint navigator")
	fmt.Fprintln(out, "Use -run to start the navigation loop")
	fmt.Fprintln(out, "Use -selftest to validate the waypoint dataset")
	fmt.Fprintln(out, "Use -generate-route to scaffold waypoints.json")
	fmt.Fprintln(out, "Use -render-match=INDEX=FRAME.png to diagram feature matches")
	fmt.Fprintln(out, "Use -actuator-check to verify input bridge control")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - pipeline tuning, actuator address, MQTT, HTTP")
	fmt.Fprintln(out, "  <dataset>/waypoints.json - the route")
	return 0, nil
}

// exitCode maps a navigation outcome onto the process exit status.
func exitCode(outcome nav.Outcome) int {
	switch outcome {
	case nav.OutcomeDone, nav.OutcomeCancelled:
		return 0
	case nav.OutcomeCalibrationFailed:
		return 2
	default:
		return 1
	}
}
