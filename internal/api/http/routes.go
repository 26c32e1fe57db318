package httpapi

import (
	"context"
	_ "embed"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-history/internal/chart"
	"github.com/i474232898/weather-history/internal/scheduler"
	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
)

var validate = validator.New()

//go:embed index.html
var indexHTML string

const startTimeout = 30 * time.Second

// ErrorHandler renders every handler error as {"error":true,"message":...}
// so the page can show the reason in its status line.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, sched *scheduler.Scheduler, charts *chart.Renderer) {
	app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.SendString(indexHTML)
	})

	v1 := app.Group("/api/v1")

	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(newStatusResponse(service, sched))
	})

	v1.Post("/search/start", func(c *fiber.Ctx) error {
		var req startRequest
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), startTimeout)
		defer cancel()

		if _, err := sched.Start(ctx, req.City); err != nil {
			switch {
			case errors.Is(err, scheduler.ErrAlreadyRunning):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			case errors.Is(err, weather.ErrEmptyCity):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to start automatic search")
		}

		return c.JSON(newStatusResponse(service, sched))
	})

	v1.Post("/search/stop", func(c *fiber.Ctx) error {
		if err := sched.Stop(); err != nil {
			if errors.Is(err, scheduler.ErrNotRunning) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to stop automatic search")
		}
		return c.JSON(newStatusResponse(service, sched))
	})

	v1.Get("/history", func(c *fiber.Ctx) error {
		readings, err := service.History()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read weather history")
		}

		rows := make([]historyRow, 0, len(readings))
		for _, r := range readings {
			rows = append(rows, newHistoryRow(r))
		}
		return c.JSON(fiber.Map{
			"empty": len(rows) == 0,
			"rows":  rows,
		})
	})

	v1.Delete("/history", func(c *fiber.Ctx) error {
		if err := service.ClearHistory(); err != nil {
			if errors.Is(err, store.ErrNoHistory) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to clear weather history")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/statistics/chart.png", func(c *fiber.Ctx) error {
		readings, err := service.History()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read weather history")
		}

		path, err := charts.Render(readings)
		if err != nil {
			if errors.Is(err, chart.ErrNoData) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render chart")
		}

		// Read back rather than SendFile: fiber caches static files and the
		// chart is overwritten on every request.
		img, err := os.ReadFile(path)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read chart")
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Type("png")
		return c.Send(img)
	})
}

// startRequest holds the body of a start request.
type startRequest struct {
	City string `json:"city" form:"city" validate:"required"`
}

func (r *startRequest) bind(c *fiber.Ctx) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(r); err != nil {
			return err
		}
	}
	if r.City == "" {
		r.City = c.Query("city")
	}
	r.City = strings.TrimSpace(r.City)
	return validate.Struct(r)
}

type statusResponse struct {
	State   scheduler.State `json:"state"`
	Job     *scheduler.Job  `json:"job,omitempty"`
	Status  weather.Status  `json:"status"`
	Message string          `json:"message"`
}

func newStatusResponse(service *weather.Service, sched *scheduler.Scheduler) statusResponse {
	st := service.Status()
	resp := statusResponse{
		State:   sched.State(),
		Status:  st,
		Message: st.Message(),
	}
	if job, ok := sched.Job(); ok {
		resp.Job = &job
	}
	return resp
}

type historyRow struct {
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	City        string  `json:"city"`
	Condition   string  `json:"condition"`
	Temperature float64 `json:"temperature"`
}

func newHistoryRow(r weather.Reading) historyRow {
	return historyRow{
		Date:        r.Date(),
		Time:        r.Clock(),
		City:        r.City,
		Condition:   r.Condition,
		Temperature: r.Temperature,
	}
}
