// Command starcamd is the production star-camera daemon: it drives the
// acquisition pipeline, ingests UDP command packets from one or more
// flight-computer peers, forwards astrometry and parameter telemetry
// back to them, mirrors every cycle into a SQLite diagnostics database,
// and serves a debugging/status HTTP endpoint. Its goroutine and
// graceful-shutdown shape mirrors the teacher's root main.go: one
// goroutine per concern under a shared sync.WaitGroup, all stopped by a
// single signal.NotifyContext.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/starcam/internal/commandproto"
	"github.com/banshee-data/starcam/internal/config"
	"github.com/banshee-data/starcam/internal/diagweb"
	"github.com/banshee-data/starcam/internal/frame"
	"github.com/banshee-data/starcam/internal/lensctl"
	"github.com/banshee-data/starcam/internal/monitoring"
	"github.com/banshee-data/starcam/internal/params"
	"github.com/banshee-data/starcam/internal/pipeline"
	"github.com/banshee-data/starcam/internal/security"
	"github.com/banshee-data/starcam/internal/solve"
	"github.com/banshee-data/starcam/internal/store"
	"github.com/banshee-data/starcam/internal/telemetry"
)

var (
	listen       = flag.String("listen", ":8080", "HTTP listen address for diagnostics and status")
	lensPort     = flag.String("lens-port", "/dev/ttyLENS", "serial device for the lens controller")
	configPath   = flag.String("config", "", "optional tuning config JSON overriding the compiled-in defaults")
	dataDir      = flag.String("data-dir", "./data", "base directory for observing logs, FITS frames, and the diagnostics database")
	dbPath       = flag.String("db", "starcam.db", "SQLite diagnostics database path, relative to -data-dir")
	peerFlags    peerList
)

// peerList collects repeated -peer flags of the form
// "name=cmd-listen:telemetry-send", one per flight-computer connection
// per spec.md §4.6 ("one Listener per peer, plus an optional loopback").
type peerList []peerSpec

type peerSpec struct {
	name          string
	commandAddr   string
	telemetryAddr string
}

func (p *peerList) String() string {
	parts := make([]string, len(*p))
	for i, s := range *p {
		parts[i] = fmt.Sprintf("%s=%s:%s", s.name, s.commandAddr, s.telemetryAddr)
	}
	return strings.Join(parts, ",")
}

func (p *peerList) Set(value string) error {
	nameRest := strings.SplitN(value, "=", 2)
	if len(nameRest) != 2 {
		return fmt.Errorf("peer spec %q: want name=cmd-listen:telemetry-send", value)
	}
	// Each address is itself host:port, so the spec holds four
	// colon-separated fields: cmdHost:cmdPort:telemHost:telemPort.
	parts := strings.Split(nameRest[1], ":")
	if len(parts) != 4 {
		return fmt.Errorf("peer spec %q: want name=cmd-listen:telemetry-send", value)
	}
	*p = append(*p, peerSpec{name: nameRest[0], commandAddr: parts[0] + ":" + parts[1], telemetryAddr: parts[2] + ":" + parts[3]})
	return nil
}

func main() {
	flag.Var(&peerFlags, "peer", "repeatable: name=cmdListenAddr:telemetrySendAddr for a flight-computer peer")
	flag.Parse()

	if err := run(); err != nil {
		log.Fatalf("starcamd: %v", err)
	}
}

func run() error {
	base, err := prepareDataDir(*dataDir)
	if err != nil {
		return err
	}

	tuning, err := loadTuning(*configPath)
	if err != nil {
		return err
	}
	block := params.New(tuning.ToParamsState())

	lens, err := lensctl.Open(*lensPort)
	if err != nil {
		return fmt.Errorf("open lens controller: %w", err)
	}
	defer lens.Close()

	const width, height = 1936, 1216 // sensor resolution, per spec.md §3's Frame

	p := pipeline.New(pipeline.Config{
		Width:          width,
		Height:         height,
		Camera:         unboundCamera{},
		Lens:           lens,
		SolveDriver:    solve.NewDriver(unboundSolver{}, solve.DefaultEphemeris{}),
		Params:         block,
		Display:        frame.NewDisplayBuffer(width, height),
		LogDir:         filepath.Join(base, "logs"),
		FitsDir:        filepath.Join(base, "fits"),
		StaticMaskPath: filepath.Join(base, "static_mask.csv"),
	})

	st, err := store.Open(filepath.Join(base, *dbPath))
	if err != nil {
		return fmt.Errorf("open diagnostics store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("pipeline stopped: %v", err)
		}
	}()

	for _, peer := range peerFlags {
		peer := peer
		listener := commandproto.NewListener(commandproto.ListenerConfig{
			Address:  peer.commandAddr,
			PeerName: peer.name,
			Block:    block,
			Gate:     p.Gate(),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && err != context.Canceled {
				monitoring.Logf("command listener %s stopped: %v", peer.name, err)
			}
		}()

		sender, err := telemetry.NewSender(peer.telemetryAddr, nil)
		if err != nil {
			return fmt.Errorf("dial telemetry sender for peer %s: %w", peer.name, err)
		}
		sender.Start(ctx)
		defer sender.Close()

		astroSender := telemetry.NewAstrometrySender(sender, p.SolvedSource())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := astroSender.Run(ctx); err != nil && err != context.Canceled {
				monitoring.Logf("astrometry sender %s stopped: %v", peer.name, err)
			}
		}()

		paramSender := telemetry.NewParameterSender(sender, paramSource{block})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := paramSender.Run(ctx); err != nil && err != context.Canceled {
				monitoring.Logf("parameter sender %s stopped: %v", peer.name, err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runHTTPServer(ctx, p, block, st)
	}()

	wg.Wait()
	log.Printf("starcamd: graceful shutdown complete")
	return nil
}

// paramSource adapts *params.Block to telemetry.ParameterSource.
type paramSource struct{ block *params.Block }

func (s paramSource) Snapshot() params.State { return s.block.Snapshot() }

func runHTTPServer(ctx context.Context, p *pipeline.Pipeline, block *params.Block, st *store.Store) {
	mux := http.NewServeMux()
	diagweb.Attach(mux, st.DB(), "starcam")
	mux.HandleFunc("/api/status", statusHandler(p, block, st.RunID()))

	server := &http.Server{Addr: *listen, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("starcamd: shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}

// prepareDataDir ensures dir exists and returns its cleaned, absolute
// form. The logs and fits subpaths built from it are validated with
// security.ValidatePathWithinDirectory before use, so a malformed
// -data-dir (e.g. containing "..") can't walk files outside the tree an
// operator intended.
func prepareDataDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir %s: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve data dir %s: %w", dir, err)
	}
	for _, sub := range []string{"logs", "fits"} {
		path := filepath.Join(abs, sub)
		if err := security.ValidatePathWithinDirectory(path, abs); err != nil {
			return "", fmt.Errorf("data dir layout: %w", err)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return "", fmt.Errorf("create %s: %w", path, err)
		}
	}
	return abs, nil
}

// loadTuning loads path if given, else tries the canonical defaults file
// relative to the working directory, falling back to an empty config
// (whose Get* accessors already carry sane built-in defaults) if that
// file isn't present either. Unlike config.MustLoadDefaultConfig, this
// never panics: it's reached from a daemon's main, not a test helper.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path != "" {
		return config.LoadTuningConfig(path)
	}
	if cfg, err := config.LoadTuningConfig(config.DefaultConfigPath); err == nil {
		return cfg, nil
	}
	return config.EmptyTuningConfig(), nil
}
