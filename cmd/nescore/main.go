// Package main implements the nescore emulator executable.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"nescore/internal/app"
	"nescore/internal/debug"
	"nescore/internal/graphics"
	"nescore/internal/statsview"
	"nescore/internal/version"
)

func main() {
	var (
		romFile     = flag.String("rom", "", "Path to NES ROM file (optional for GUI mode)")
		configFile  = flag.String("config", "", "Path to configuration file")
		debugMode   = flag.Bool("debug", false, "Enable PPU logging and CPU tracing")
		debugDir    = flag.String("debug-session", "", "Write frame dumps, a trace tail and a state graph of the first frames to this directory")
		nogui       = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		frames      = flag.Int("frames", 0, "Stop after this many frames (0 runs until closed)")
		dumpDir     = flag.String("dump-dir", "", "Directory for headless frame dumps")
		dumpFrames  = flag.String("dump-frames", "", "Comma separated frame numbers to dump when headless")
		dumpEvery   = flag.Int("dump-every", 0, "Dump every Nth frame when headless")
		dumpState   = flag.String("dump-state", "", "Write the final machine state as a Graphviz dot file")
		stats       = flag.Bool("statsview", false, "Serve runtime statistics over HTTP")
		help        = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}
	if *showVersion {
		version.WriteBuildInfo(os.Stdout)
		os.Exit(0)
	}
	if *nogui && *romFile == "" {
		log.Fatal("ROM file required for headless mode")
	}

	frameList, err := parseFrameList(*dumpFrames)
	if err != nil {
		log.Fatalf("Invalid -dump-frames: %v", err)
	}

	if *stats {
		stop := statsview.Launch(os.Stdout)
		defer stop()
	}

	configPath := *configFile
	if configPath == "" {
		configPath = app.DefaultConfigPath()
	}

	application, err := app.NewApplicationWithOptions(configPath, app.Options{
		Headless:      *nogui,
		MaxFrames:     *frames,
		DumpDirectory: *dumpDir,
		DumpFrames:    frameList,
		DumpEvery:     *dumpEvery,
	})
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := run(application, *romFile, *debugMode, *debugDir, *dumpState); err != nil {
		application.Cleanup()
		log.Fatalf("%s: %v", version.GetVersion(), err)
	}
	if err := application.Cleanup(); err != nil {
		log.Printf("Application cleanup error: %v", err)
	}
}

func run(application *app.Application, romFile string, debugMode bool, debugDir, dumpState string) error {
	if debugMode {
		cfg := application.GetConfig()
		cfg.Debug.EnableLogging = true
		cfg.Debug.PPUDebugging = true
		cfg.Debug.CPUTracing = true
	}
	application.ApplyDebugSettings()

	if romFile == "" {
		return runApplication(application)
	}

	fmt.Printf("Loading ROM: %s\n", romFile)
	if err := application.LoadROM(romFile); err != nil {
		return err
	}
	h := application.GetConsole().Cartridge().Header()
	fmt.Printf("  mapper %d, %dx16KB PRG, %dx8KB CHR, %s mirroring\n", h.Mapper, h.PRGBanks, h.CHRBanks, h.Mirroring)

	var session *debug.Session
	if debugDir != "" {
		session = debug.NewSession(debugDir, application.GetConsole())
		if err := session.Start(); err != nil {
			return errors.Wrap(err, "start debug session")
		}
		fmt.Printf("Debug session writing to %s\n", session.OutputDir())
	}

	// The first interrupt stops the frame loop so saves are written; a
	// second one exits immediately
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	application.SetFrameHook(func(frame *graphics.Frame) error {
		select {
		case <-sig:
			fmt.Println("\nInterrupt received, shutting down...")
			application.Stop()
			go func() {
				<-sig
				os.Exit(1)
			}()
		default:
		}
		if session != nil {
			return session.ProcessFrame(frame)
		}
		return nil
	})

	runErr := runApplication(application)

	if session != nil {
		if err := session.Stop(); err != nil {
			log.Printf("Debug session: %v", err)
		}
	}
	if dumpState != "" {
		if err := debug.DumpStateGraph(dumpState, application.GetConsole()); err != nil {
			log.Printf("State dump: %v", err)
		} else {
			fmt.Printf("Machine state written to %s\n", dumpState)
		}
	}
	return runErr
}

func runApplication(application *app.Application) error {
	if err := application.Run(); err != nil {
		return errors.Wrap(err, "application run failed")
	}

	fmt.Printf("Session statistics:\n")
	fmt.Printf("  Frames rendered: %d\n", application.GetFrameCount())
	fmt.Printf("  Session time:    %v\n", application.GetUptime())
	fmt.Printf("  Average FPS:     %.1f\n", application.GetFPS())
	if fault := application.GetEmulator().Fault(); fault != nil {
		fmt.Printf("  Halted:          %v\n", fault)
	}
	return nil
}

// parseFrameList reads "30,60,120"
func parseFrameList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var frames []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, errors.Wrapf(err, "frame %q", field)
		}
		if n <= 0 {
			return nil, errors.Errorf("frame %d: numbers start at 1", n)
		}
		frames = append(frames, n)
	}
	return frames, nil
}

func printUsage() {
	fmt.Println("nescore - NES emulator core")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  nescore [options]                    # Start GUI mode without ROM")
	fmt.Println("  nescore -rom <file> [options]        # Start with ROM loaded")
	fmt.Println("  nescore -nogui -rom <file> [options] # Run headless mode")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  nescore -rom game.nes")
	fmt.Println("  nescore -nogui -rom game.nes -frames 120 -dump-frames 30,60,120")
	fmt.Println("  nescore -nogui -rom game.nes -frames 10 -dump-state state.dot")
	fmt.Println("  nescore -rom game.nes -debug-session ./debug")
	fmt.Println()
	fmt.Println("CONTROLS (default):")
	fmt.Println("  Player 1: WASD d-pad, J A, K B, Enter Start, Space Select")
	fmt.Println("  Player 2: arrows d-pad, N A, M B, Right Shift Start, Right Ctrl Select")
	fmt.Println()
	fmt.Println("  Escape (2x)   Quit (double-tap within 3 seconds)")
	fmt.Println("  F1-F10        Save state")
	fmt.Println("  Shift+F1-F10  Load state")
	fmt.Println("  Ctrl+P        Pause")
	fmt.Println("  Ctrl+R        Reset")
	fmt.Println()
	fmt.Printf("CONFIGURATION:\n  %s\n", app.DefaultConfigPath())
	fmt.Println()
	fmt.Println("SUPPORTED FORMATS:")
	fmt.Println("  iNES (.nes), mapper 0 (NROM)")
}
