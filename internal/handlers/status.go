package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/logger"
	"github.com/jjenkins/lottosync/internal/service"
	"github.com/jjenkins/lottosync/internal/store"
)

// StatusResponse reports the crawler's resume point and store totals
type StatusResponse struct {
	LastPage       int                   `json:"lastPage"`
	NextPage       int                   `json:"nextPage"`
	LastScrapeDate *time.Time            `json:"lastScrapeDate,omitempty"`
	TotalScraped   int                   `json:"totalScraped"`
	Store          *service.StoreSummary `json:"store"`
}

// HealthHandler reports whether the database answers
func HealthHandler(db *store.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			logger.Errorf("Health check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok", "store": db.Dialect.String()})
	}
}

// StatusHandler returns the saved scrape state alongside store totals
func StatusHandler(stateStore *store.StateStore, summaries *service.SummaryService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		state, err := stateStore.Load(ctx)
		if err != nil {
			logger.Errorf("Error loading scraper state: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Error loading scraper state")
		}

		summary, err := summaries.Summarize(ctx)
		if err != nil {
			logger.Errorf("Error summarizing store: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Error loading store summary")
		}

		resp := StatusResponse{
			LastPage:     state.LastPage,
			NextPage:     service.ResolveStartPage(0, state, false),
			TotalScraped: state.TotalScraped,
			Store:        summary,
		}
		if !state.LastScrapeDate.IsZero() {
			resp.LastScrapeDate = &state.LastScrapeDate
		}

		return c.JSON(resp)
	}
}
