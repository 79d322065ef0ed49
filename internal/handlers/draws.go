package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/logger"
	"github.com/jjenkins/lottosync/internal/drawdate"
	"github.com/jjenkins/lottosync/internal/model"
	"github.com/jjenkins/lottosync/internal/store"
)

// DrawResponse is the JSON form of a stored draw
type DrawResponse struct {
	ID             int64             `json:"id"`
	DrawDate       string            `json:"drawDate"`
	LottoType      string            `json:"lottoType"`
	WinningNumbers []int             `json:"winningNumbers"`
	MachineNumbers []int             `json:"machineNumbers"`
	Source         string            `json:"source,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// DrawListResponse wraps a page of draws
type DrawListResponse struct {
	Draws  []DrawResponse `json:"draws"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func toDrawResponse(d model.Draw) DrawResponse {
	return DrawResponse{
		ID:             d.ID,
		DrawDate:       d.DrawDate,
		LottoType:      d.LottoType,
		WinningNumbers: d.WinningNumbers,
		MachineNumbers: d.MachineNumbers,
		Source:         d.Source.String,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt,
	}
}

// DrawsHandler lists draws filtered by lotto_type, from, to and number
func DrawsHandler(drawStore *store.DrawStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := model.DrawFilter{
			LottoType: c.Query("lotto_type"),
			Number:    c.QueryInt("number", 0),
			Limit:     c.QueryInt("limit", model.DefaultSearchLimit),
			Offset:    c.QueryInt("offset", 0),
		}.Normalized()

		// Accept any date spelling the scraper accepts
		for _, p := range []struct {
			name string
			dst  *string
		}{{"from", &filter.From}, {"to", &filter.To}} {
			raw := c.Query(p.name)
			if raw == "" {
				continue
			}
			date, err := drawdate.Normalize(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid "+p.name+" date")
			}
			*p.dst = date.String()
		}

		if filter.Number != 0 && !model.InRange(filter.Number) {
			return fiber.NewError(fiber.StatusBadRequest, "number must be between 1 and 90")
		}

		draws, err := drawStore.Search(c.UserContext(), filter)
		if err != nil {
			logger.Errorf("Error searching draws: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Error loading draws")
		}

		resp := DrawListResponse{
			Draws:  make([]DrawResponse, 0, len(draws)),
			Limit:  filter.Limit,
			Offset: filter.Offset,
		}
		for _, d := range draws {
			resp.Draws = append(resp.Draws, toDrawResponse(d))
		}

		return c.JSON(resp)
	}
}

// LatestDrawHandler returns the most recent draw, optionally for one lotto type
func LatestDrawHandler(drawStore *store.DrawStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		draw, err := drawStore.Latest(c.UserContext(), c.Query("lotto_type"))
		if err != nil {
			logger.Errorf("Error loading latest draw: %v", err)
			return fiber.NewError(fiber.StatusInternalServerError, "Error loading draw")
		}
		if draw == nil {
			return fiber.NewError(fiber.StatusNotFound, "No draws found")
		}

		return c.JSON(toDrawResponse(*draw))
	}
}
