// Package server exposes the webhook and the automation API over fiber.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"EditorialDesk/internal/bot"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/infrastructure/telegram"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/usecase"
)

const (
	secretHeader  = "X-Desk-Secret"
	webhookHeader = "X-Telegram-Bot-Api-Secret-Token"
	bodyLimit     = 4 * 1024 * 1024
)

// Deps wires the HTTP surface.
type Deps struct {
	Bot       *bot.Bot
	Intake    *usecase.Intake
	Reporter  *usecase.Reporter
	Scheduler *usecase.Scheduler
	Journal   *journal.Journal
	Logger    *slog.Logger

	// Secret gates every route; an empty secret refuses all requests.
	Secret        string
	WebhookSecret string
}

// Server owns the fiber application.
type Server struct {
	app  *fiber.App
	deps Deps
	log  *slog.Logger
}

// New builds the application and registers routes.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{deps: deps, log: deps.Logger}
	s.app = fiber.New(fiber.Config{
		AppName:               "EditorialDesk",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving addr.
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Post("/webhook/telegram", s.gate(webhookHeader), s.webhook)

	api := s.app.Group("/api", s.gate(""))
	api.Post("/articles", s.createArticle)
	api.Get("/status", s.status)
	api.Post("/jobs/:name/run", s.runJob)
	api.Get("/logs", s.logs)

	s.app.Get("/healthz", s.gate(""), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

// gate accepts the shared desk secret, or the Telegram token header when alt is set.
func (s *Server) gate(alt string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if matches(c.Get(secretHeader), s.deps.Secret) {
			return c.Next()
		}
		if alt != "" && matches(c.Get(alt), s.deps.WebhookSecret) {
			return c.Next()
		}
		s.log.Warn("request refused", "path", c.Path(), "ip", c.IP())
		return fiber.ErrUnauthorized
	}
}

func matches(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) webhook(c *fiber.Ctx) error {
	if s.deps.Bot == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "bot not configured")
	}
	in, ok, err := telegram.Decode(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if ok {
		s.deps.Bot.Dispatch(c.UserContext(), in)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (s *Server) createArticle(c *fiber.Ctx) error {
	if s.deps.Intake == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "intake not configured")
	}
	var req usecase.ArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json body")
	}
	rec, err := s.deps.Intake.Article(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"approval_id": rec.ID,
		"status":      rec.Status,
		"title":       rec.TitleA,
	})
}

func (s *Server) status(c *fiber.Ctx) error {
	if s.deps.Reporter == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "status not configured")
	}
	period := 24 * time.Hour
	if raw := c.Query("period"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "period must be a positive duration")
		}
		period = d
	}
	rep, err := s.deps.Reporter.Report(c.UserContext(), period)
	if err != nil {
		return err
	}
	return c.JSON(rep)
}

func (s *Server) runJob(c *fiber.Ctx) error {
	if s.deps.Scheduler == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "scheduler not configured")
	}
	name := c.Params("name")
	if err := s.deps.Scheduler.RunNow(c.UserContext(), name); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"job": name, "status": "done"})
}

type logEntry struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Event     string    `json:"event"`
	SubjectID string    `json:"subject_id,omitempty"`
	Context   any       `json:"context,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) logs(c *fiber.Ctx) error {
	q := domain.JournalQuery{
		Level:   domain.Level(c.Query("level")),
		Page:    c.QueryInt("page", 1),
		PerPage: c.QueryInt("per_page", 50),
	}
	switch q.Level {
	case "", domain.LevelDebug, domain.LevelInfo, domain.LevelWarn, domain.LevelError:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown level")
	}

	entries, total, err := s.deps.Journal.List(c.UserContext(), q)
	if err != nil {
		return err
	}
	out := make([]logEntry, 0, len(entries))
	for _, e := range entries {
		item := logEntry{ID: e.ID, Level: string(e.Level), Event: e.Event, SubjectID: e.SubjectID, CreatedAt: e.CreatedAt}
		if len(e.Context) > 0 {
			item.Context = e.Context
		}
		out = append(out, item)
	}
	return c.JSON(fiber.Map{"entries": out, "total": total, "page": q.Page, "per_page": q.PerPage})
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, domain.ErrEmptyTitle):
		code = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, domain.ErrNotConfigured):
		code = fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrMalformedResponse):
		code = fiber.StatusBadGateway
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
