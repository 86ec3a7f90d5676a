// Package server exposes a Codec over HTTP: an upload form, a JSON API and a
// websocket endpoint for clients encoding many images over one connection.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/tmpim/pixcode"
	"github.com/tmpim/pixcode/cache"
	"github.com/tmpim/pixcode/imageio"
)

// DefaultMaxUploadBytes is the upload size limit used when none is specified.
const DefaultMaxUploadBytes = 32 << 20

// Options configures a Server.
type Options struct {
	// Cache is optional.
	Cache *cache.Cache
	// Logger defaults to log.Default().
	Logger *log.Logger
	// MaxUploadBytes limits request bodies and websocket messages.
	MaxUploadBytes int64
	// MaxPixels limits the declared size of decoded images. Defaults to
	// imageio.DefaultMaxPixels.
	MaxPixels int
}

// Server is an HTTP front end for a Codec.
type Server struct {
	codec       *pixcode.Codec
	opts        Options
	fingerprint string

	echo     *echo.Echo
	upgrader websocket.Upgrader
}

var (
	formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Image Color Analyzer</title></head>
<body>
<h2>Image Color Analyzer</h2>
<form method="post" enctype="multipart/form-data">
<input type="file" name="image" accept="image/*"><br><br>
<input type="submit" value="Analyze">
</form>
</body>
</html>
`))

	resultTemplate = template.Must(template.New("result").Parse(`<h3>Width: {{.Width}}<br>Total pixels: {{.Pixels}}</h3>
<p>{{.Sequence}}</p>
`))
)

// New returns a Server encoding uploads with codec.
func New(codec *pixcode.Codec, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = imageio.DefaultMaxPixels
	}

	s := &Server{
		codec:       codec,
		opts:        opts,
		fingerprint: cache.Fingerprint(codec),
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
		},
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${method} ${uri} ${status} ${latency_human}\n",
		Output: opts.Logger.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel}).Writer(),
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dK", (opts.MaxUploadBytes+1023)/1024)))

	e.GET("/", s.handleForm)
	e.POST("/", s.handleUpload)

	api := e.Group("/api")
	api.POST("/encode", s.handleEncode)
	api.GET("/ws", s.handleWebsocket)

	s.echo = e
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr and serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.opts.Logger.Info("listening", "addr", addr, "budget", s.codec.PixelBudget(), "strategy", s.codec.Strategy())
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// analyze decodes and encodes data, consulting the cache if there is one.
func (s *Server) analyze(data []byte) (*pixcode.Result, error) {
	var key string
	if s.opts.Cache != nil {
		key = cache.Key(data, s.fingerprint)
		res, err := s.opts.Cache.Get(key)
		if err != nil {
			s.opts.Logger.Warn("cache lookup failed", "key", key, "err", err)
		} else if res != nil {
			s.opts.Logger.Debug("cache hit", "key", key)
			return res, nil
		}
	}

	img, format, err := imageio.Decode(data, s.opts.MaxPixels)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := s.codec.Encode(img)
	s.opts.Logger.Debug("encoded image",
		"format", format,
		"source", fmt.Sprintf("%dx%d", res.SourceWidth, res.SourceHeight),
		"size", fmt.Sprintf("%dx%d", res.Width, res.Height),
		"resized", res.Resized,
		"took", time.Since(start))

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Put(key, res); err != nil {
			s.opts.Logger.Warn("cache store failed", "key", key, "err", err)
		}
	}

	return res, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

func (s *Server) handleForm(c echo.Context) error {
	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, nil); err != nil {
		return err
	}
	return c.HTML(http.StatusOK, buf.String())
}

func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("image")
	if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
		return c.String(http.StatusRequestEntityTooLarge, "File too large!")
	} else if err != nil {
		return c.String(http.StatusBadRequest, "No file uploaded!")
	}

	data, err := readFormFile(fh)
	if err != nil {
		return err
	}

	res, err := s.analyze(data)
	if errors.Is(err, imageio.ErrTooLarge) {
		s.opts.Logger.Info("rejected upload", "filename", fh.Filename, "err", err)
		return c.String(http.StatusRequestEntityTooLarge, "Image too large!")
	} else if err != nil {
		s.opts.Logger.Info("rejected upload", "filename", fh.Filename, "err", err)
		return c.String(http.StatusBadRequest, "Could not read image!")
	}

	var buf bytes.Buffer
	if err := resultTemplate.Execute(&buf, response{Result: res, Sequence: res.String()}); err != nil {
		return err
	}
	return c.HTML(http.StatusOK, buf.String())
}

type response struct {
	*pixcode.Result
	Sequence string `json:"sequence"`
}

func (s *Server) handleEncode(c echo.Context) error {
	var data []byte
	var err error

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, ferr := c.FormFile("image")
		if errors.Is(ferr, echo.ErrStatusRequestEntityTooLarge) {
			return echo.ErrStatusRequestEntityTooLarge
		} else if ferr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no file uploaded")
		}
		data, err = readFormFile(fh)
	} else {
		data, err = io.ReadAll(c.Request().Body)
	}
	if err != nil {
		return err
	}

	res, err := s.analyze(data)
	if errors.Is(err, imageio.ErrTooLarge) {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	} else if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusOK, response{Result: res, Sequence: res.String()})
}
