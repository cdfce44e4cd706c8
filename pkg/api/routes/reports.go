package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/cellroutes/pkg/loadreport"
)

func ReportsRouter(router fiber.Router, store *Store) {
	router.Get("/", listReports(store))
	router.Get("/summary", reportSummary(store))
}

func listReports(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scenario := c.Query("scenario")
		kind := loadreport.Kind(c.Query("kind"))

		var entries []loadreport.Entry
		if scenario != "" {
			entries = store.Report().ForScenario(scenario)
		} else {
			entries = store.Report().Entries()
		}

		filtered := []loadreport.Entry{}
		for _, entry := range entries {
			if kind == "" || entry.Kind == kind {
				filtered = append(filtered, entry)
			}
		}

		return c.JSON(filtered)
	}
}

func reportSummary(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, counts := store.Report().Summary()

		return c.JSON(counts)
	}
}
