package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/tmpim/pixcode"
	"github.com/tmpim/pixcode/cache"
	"github.com/tmpim/pixcode/imageio"
	"github.com/tmpim/pixcode/preview"
	"github.com/tmpim/pixcode/server"
	"github.com/tmpim/pixcode/tui"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newCodec(c *cli.Context) (*pixcode.Codec, error) {
	if c.Int("budget") <= 0 {
		return nil, errors.New("budget must be positive")
	}

	opts := pixcode.Options{
		PixelBudget: c.Int("budget"),
	}

	strategy, err := pixcode.ParseStrategy(c.String("strategy"))
	if err != nil {
		return nil, err
	}
	opts.Strategy = strategy

	if s := c.String("palette"); s != "" {
		p, err := pixcode.ParsePalette(s)
		if err != nil {
			return nil, err
		}
		opts.Palette = p
	}

	return pixcode.New(opts)
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.NewWithOptions(c.App.ErrWriter, log.Options{
		ReportTimestamp: true,
		Prefix:          "pixcode",
	})
	if c.Bool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

type fileResult struct {
	File string `json:"file"`
	*pixcode.Result
	Sequence string `json:"sequence"`
}

func encodeAction(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}

	codec, err := newCodec(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	logger := newLogger(c)

	files := c.Args().Slice()
	results := make([]*pixcode.Result, len(files))

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			img, _, err := imageio.ReadFile(file, c.Int("max-pixels"))
			if err != nil {
				return err
			}
			start := time.Now()
			results[i] = codec.Encode(img)
			logger.Debug("encoded", "file", file, "resized", results[i].Resized, "took", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cli.Exit(err, 1)
	}

	w := c.App.Writer
	enc := json.NewEncoder(w)
	for i, res := range results {
		if c.Bool("json") {
			if err := enc.Encode(fileResult{File: files[i], Result: res, Sequence: res.String()}); err != nil {
				return cli.Exit(err, 1)
			}
			continue
		}

		if len(files) > 1 {
			fmt.Fprintf(w, "%s:\n", files[i])
		}
		if c.Bool("preview") {
			fmt.Fprintln(w, preview.Render(res, codec.Palette()))
		}
		fmt.Fprintf(w, "Width: %d\nTotal pixels: %d\n%s\n", res.Width, res.Pixels, res)
	}

	return nil
}

func serveAction(c *cli.Context) error {
	codec, err := newCodec(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	logger := newLogger(c)

	opts := server.Options{
		Logger:         logger,
		MaxUploadBytes: c.Int64("max-upload"),
		MaxPixels:      c.Int("max-pixels"),
	}

	if path := c.String("db"); path != "" {
		rc, err := cache.Open(path)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer rc.Close()
		opts.Cache = rc
	}

	s := server.New(codec, opts)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- s.Start(net.JoinHostPort(c.String("host"), strconv.Itoa(c.Int("port"))))
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return cli.Exit(err, 1)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func tuiAction(c *cli.Context) error {
	codec, err := newCodec(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	if _, err := tea.NewProgram(tui.New(codec, c.Int("max-pixels")), tea.WithAltScreen()).Run(); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func benchAction(c *cli.Context) error {
	if c.NArg() != 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
	}

	codec, err := newCodec(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	img, _, err := imageio.ReadFile(c.Args().First(), c.Int("max-pixels"))
	if err != nil {
		return cli.Exit(err, 1)
	}

	workers, iterations := c.Int("workers"), c.Int("iterations")
	if workers < 1 || iterations < 1 {
		return cli.Exit("workers and iterations must be positive", 1)
	}

	start := time.Now()

	g := new(errgroup.Group)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for it := 0; it < iterations; it++ {
				if _, err := codec.Encode(img).WriteTo(io.Discard); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return cli.Exit(err, 1)
	}

	took := time.Since(start)
	total := workers * iterations
	fmt.Fprintf(c.App.Writer, "encoded %d images in %s (%s per image)\n", total, took, took/time.Duration(total))

	return nil
}

func paletteAction(c *cli.Context) error {
	codec, err := newCodec(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	fmt.Fprintln(c.App.Writer, preview.Legend(codec.Palette()))
	return nil
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "pixcode"
	app.Usage = "Convert images into palette color code sequences"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "budget",
			EnvVars: []string{"PIXCODE_BUDGET"},
			Value:   pixcode.DefaultPixelBudget,
			Usage:   "maximum number of pixels classified per image",
		},
		&cli.StringFlag{
			Name:    "palette",
			EnvVars: []string{"PIXCODE_PALETTE"},
			Usage:   "custom palette as code=#rrggbb pairs separated by commas",
		},
		&cli.StringFlag{
			Name:    "strategy",
			EnvVars: []string{"PIXCODE_STRATEGY"},
			Value:   pixcode.StrategyHalving.String(),
			Usage:   "downscale strategy, halving or proportional",
		},
		&cli.IntFlag{
			Name:    "max-pixels",
			EnvVars: []string{"PIXCODE_MAX_PIXELS"},
			Value:   imageio.DefaultMaxPixels,
			Usage:   "refuse to decode images with more pixels than this",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "encode",
			Usage:     "Print the color code sequence of one or more images",
			ArgsUsage: "FILE...",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "json",
					Usage: "print one JSON object per image",
				},
				&cli.BoolFlag{
					Name:  "preview",
					Usage: "draw the encoded image in the terminal",
				},
			},
			Action: encodeAction,
		},
		{
			Name:  "serve",
			Usage: "Serve the upload form and API over HTTP",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "host",
					Value: "0.0.0.0",
					Usage: "address to listen on",
				},
				&cli.IntFlag{
					Name:    "port",
					EnvVars: []string{"PORT"},
					Value:   5000,
					Usage:   "port to listen on",
				},
				&cli.StringFlag{
					Name:    "db",
					EnvVars: []string{"PIXCODE_DB"},
					Usage:   "path to result cache database",
				},
				&cli.Int64Flag{
					Name:  "max-upload",
					Value: server.DefaultMaxUploadBytes,
					Usage: "maximum upload size in bytes",
				},
			},
			Action: serveAction,
		},
		{
			Name:   "tui",
			Usage:  "Encode images interactively",
			Action: tuiAction,
		},
		{
			Name:      "bench",
			Usage:     "Measure encoding throughput",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "workers",
					Value: runtime.NumCPU(),
					Usage: "number of concurrent encoders",
				},
				&cli.IntFlag{
					Name:  "iterations",
					Value: 100,
					Usage: "images encoded per worker",
				},
			},
			Action: benchAction,
		},
		{
			Name:   "palette",
			Usage:  "Show the palette codes and colors",
			Action: paletteAction,
		},
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
