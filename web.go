package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"cropforge/encoder"
	"cropforge/export"
	"cropforge/geometry"
)

const artifactsPath = "/api/artifacts"

type Config struct {
	Workspace        *Workspace
	Addr             string
	OutputDir        string
	OnBeforeShutdown func()
	OnReady          func(addr string)
}

type WebApp struct {
	config       Config
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config Config) *WebApp {
	if config.Addr == "" {
		config.Addr = "localhost:0"
	}
	return &WebApp{
		config:     config,
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.newApp(ctx)

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
		a.config.Workspace.Close()
	}()

	listener, err := net.Listen("tcp", a.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (a *WebApp) newApp(ctx context.Context) *fiber.App {
	ws := a.config.Workspace
	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		BodyLimit:             64 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Ctx(ctx).Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			if code, ok := statusFor(err); ok {
				return c.Status(code).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
		},
	})

	api := webapp.Group("/api")

	api.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(ws.Snapshot())
	})

	api.Post("/image", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("image")
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "image file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		if _, err := ws.Load(ctx, fh.Filename, f); err != nil {
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		}
		return c.JSON(ws.Snapshot())
	})

	api.Post("/drag", func(c *fiber.Ctx) error {
		var request struct {
			Handle  string        `json:"handle"`
			X       float64       `json:"x"`
			Y       float64       `json:"y"`
			Display geometry.Size `json:"display"`
		}
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		h, err := geometry.ParseHandle(request.Handle)
		if err != nil {
			return err
		}
		id, err := ws.StartDrag(h, geometry.Point{X: request.X, Y: request.Y}, request.Display)
		if err != nil {
			return err
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id})
	})

	api.Post("/drag/:id/move", func(c *fiber.Ctx) error {
		var p geometry.Point
		if err := c.BodyParser(&p); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		rect, err := ws.MoveDrag(c.Params("id"), p)
		if err != nil {
			return err
		}
		return c.JSON(rect)
	})

	api.Delete("/drag/:id", func(c *fiber.Ctx) error {
		if err := ws.EndDrag(c.Params("id")); err != nil {
			return err
		}
		return c.JSON(ws.Editor().State())
	})

	api.Post("/aspect", func(c *fiber.Ctx) error {
		var request struct {
			Key string `json:"key"`
		}
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		st, err := ws.Editor().SetAspect(request.Key)
		if err != nil {
			return err
		}
		return c.JSON(st)
	})

	api.Post("/ops", func(c *fiber.Ctx) error {
		var ops Operations
		if err := c.BodyParser(&ops); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if !ws.Editor().Loaded() {
			return export.ErrNoImageLoaded
		}
		executor := OperationExecutor{Editor: ws.Editor()}
		if err := executor.Exec(ctx, ops); err != nil {
			return err
		}
		return c.JSON(ws.Editor().State())
	})

	// Form fields are parsed permissively: a malformed number keeps the
	// current value instead of failing the request.
	api.Put("/settings", func(c *fiber.Ctx) error {
		current := ws.Settings()
		next := current
		if v := c.FormValue("format"); v != "" {
			f, err := encoder.ParseFormat(v)
			if err != nil {
				return fiber.NewError(http.StatusBadRequest, err.Error())
			}
			next.Format = f
		}
		next.Quality = export.ParseFloat(c.FormValue("quality"), current.Quality)
		next.TargetSizeKB = export.ParseInt(c.FormValue("target_size_kb"), current.TargetSizeKB)
		s, err := ws.SetSettings(next)
		if err != nil {
			return err
		}
		return c.JSON(s)
	})

	api.Post("/outputs", func(c *fiber.Ctx) error {
		return c.JSON(ws.AddOutput(parseOutputForm(c, export.OutputSpec{Enabled: true})))
	})

	api.Put("/outputs/:index", func(c *fiber.Ctx) error {
		i, err := c.ParamsInt("index")
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid output index")
		}
		current := ws.Snapshot().Outputs
		if i < 0 || i >= len(current) {
			return fmt.Errorf("%w: %d", errOutputNotFound, i)
		}
		outputs, err := ws.UpdateOutput(i, parseOutputForm(c, current[i]))
		if err != nil {
			return err
		}
		return c.JSON(outputs)
	})

	api.Delete("/outputs/:index", func(c *fiber.Ctx) error {
		i, err := c.ParamsInt("index")
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid output index")
		}
		outputs, err := ws.RemoveOutput(i)
		if err != nil {
			return err
		}
		return c.JSON(outputs)
	})

	api.Post("/process", func(c *fiber.Ctx) error {
		handles, err := ws.Process(ctx)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"artifacts": handles})
	})

	api.Get("/artifacts/:id", func(c *fiber.Ctx) error {
		h, err := ws.Store().Get(c.Params("id"))
		if err != nil {
			return err
		}
		if h.Err != nil {
			return fiber.NewError(http.StatusUnprocessableEntity, h.Error)
		}
		c.Attachment(h.Name)
		c.Set(fiber.HeaderContentType, h.Format.MIME())
		return c.Send(h.Data)
	})

	api.Delete("/artifacts/:id", func(c *fiber.Ctx) error {
		if err := ws.Store().Release(c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	})

	api.Post("/save", func(c *fiber.Ctx) error {
		if a.config.OutputDir == "" {
			return fiber.NewError(http.StatusNotFound, "no output directory configured")
		}
		sink := export.DirSink{Dir: a.config.OutputDir}
		if err := export.DownloadAll(ctx, ws.Store().List(), sink, 0); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	})

	api.Post("/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	return webapp
}

func parseOutputForm(c *fiber.Ctx, current export.OutputSpec) export.OutputSpec {
	current.Width = export.ParseInt(c.FormValue("width"), current.Width)
	current.Height = export.ParseInt(c.FormValue("height"), current.Height)
	if v := c.FormValue("enabled"); v != "" {
		enabled, err := strconv.ParseBool(v)
		current.Enabled = err == nil && enabled
	}
	return current
}

func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, export.ErrNoImageLoaded),
		errors.Is(err, geometry.ErrEmptyImage),
		errors.Is(err, geometry.ErrDragActive),
		errors.Is(err, errRunSuperseded):
		return http.StatusConflict, true
	case errors.Is(err, export.ErrArtifactNotFound),
		errors.Is(err, errUnknownDrag),
		errors.Is(err, errOutputNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, geometry.ErrDragEnded):
		return http.StatusGone, true
	case errors.Is(err, geometry.ErrUnknownHandle),
		errors.Is(err, geometry.ErrUnknownAspect),
		errors.Is(err, encoder.ErrUnknownFormat):
		return http.StatusBadRequest, true
	}
	return 0, false
}
