package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strings"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"promptcanvas/internal/api"
	"promptcanvas/internal/catalog"
	"promptcanvas/internal/config"
	"promptcanvas/internal/imagegen/pollinations"
	"promptcanvas/internal/round"
	"promptcanvas/internal/scoring"
	"promptcanvas/internal/ws"
	staticserver "promptcanvas/static"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`PromptCanvas - Timed prompt-to-image challenge

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                Port to listen on (default: 8080)
  PROVIDER_BASE_URL   Image provider base URL (default: https://image.pollinations.ai)
  ROUND_SECONDS       Round length in seconds (default: 60)
  DIFF_THRESHOLD      Perceptual diff threshold 0..1 (default: 0.15)
  ASSETS_DIR          Directory with reference images (default: ./assets/references)

Visit http://localhost:8080 after starting the server.
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("PromptCanvas %s\n", version)
		return
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedPaths([]string{"/socket.io"})))
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})

	// the controller and the provider client lock their rngs independently,
	// so they must not share one *rand.Rand
	cat := catalog.Default()
	provider := pollinations.New(cfg.ProviderBaseURL, rand.New(rand.NewSource(time.Now().UnixNano())))
	engine := scoring.NewEngine()
	engine.Threshold = cfg.DiffThreshold

	controller := round.NewController(cat, provider, engine, catalog.DirSource{Root: cfg.AssetsDir}, rand.New(rand.NewSource(time.Now().UnixNano())))
	controller.RoundSeconds = cfg.RoundSeconds
	controller.TickInterval = time.Second
	defer controller.Stop()

	sock := ws.New(controller)
	io := sock.Mount(r)
	defer io.Close()

	srv := &api.Server{Controller: controller, Provider: provider, Catalog: cat}
	srv.Register(r)

	// Serve frontend (if embedded build is present) for all other routes
	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
