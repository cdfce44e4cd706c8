package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/travigo/cellroutes/pkg/routeimporter/manager"
)

const defaultPageSize = 100

func ScenariosRouter(router fiber.Router, store *Store) {
	router.Get("/", listScenarios(store))
	router.Get("/:identifier", getScenario(store))
	router.Get("/:identifier/vehicles", listVehicles(store))
	router.Get("/:identifier/vehicles/:vehicle", getVehicle(store))
	router.Get("/:identifier/routes/:route", getRouteDef(store))
}

func reduced(c *fiber.Ctx, groups []string, data interface{}) error {
	reducedData, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, data)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce response",
		})
	}

	return c.JSON(reducedData)
}

func notFound(c *fiber.Ctx, message string) error {
	c.SendStatus(fiber.StatusNotFound)
	return c.JSON(fiber.Map{
		"error": message,
	})
}

// loadedScenario returns the result of a scenario that imported successfully
func loadedScenario(c *fiber.Ctx, store *Store) (*manager.Result, bool) {
	result, exists := store.Get(c.Params("identifier"))
	if !exists || result.Err != nil || result.Network == nil {
		return nil, false
	}
	return result, true
}

func listScenarios(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		views := []*ScenarioView{}
		for _, result := range store.All() {
			views = append(views, newScenarioView(result))
		}

		return reduced(c, []string{"basic"}, views)
	}
}

func getScenario(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, exists := store.Get(c.Params("identifier"))
		if !exists {
			return notFound(c, "Scenario could not be found")
		}

		return reduced(c, []string{"basic", "detailed"}, newScenarioView(result))
	}
}

func listVehicles(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, exists := loadedScenario(c, store)
		if !exists {
			return notFound(c, "Scenario could not be found")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", defaultPageSize)
		if offset < 0 || limit < 1 {
			c.SendStatus(fiber.StatusBadRequest)
			return c.JSON(fiber.Map{
				"error": "offset must not be negative and limit must be positive",
			})
		}

		vehicles := result.Network.Vehicles()

		views := []*VehicleView{}
		for i := offset; i < len(vehicles) && i < offset+limit; i++ {
			views = append(views, newVehicleView(vehicles[i]))
		}

		return reduced(c, []string{"basic"}, views)
	}
}

func getVehicle(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, exists := loadedScenario(c, store)
		if !exists {
			return notFound(c, "Scenario could not be found")
		}

		vehicle, exists := result.Network.Vehicle(c.Params("vehicle"))
		if !exists {
			return notFound(c, "Vehicle could not be found")
		}

		view := newVehicleView(vehicle)
		if set, exists := result.Network.RouteDef(vehicle.RouteDefRef); exists {
			view.RouteDef = newAlternativeSetView(result.Network, set)
		}

		return reduced(c, []string{"basic", "detailed"}, view)
	}
}

func getRouteDef(store *Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, exists := loadedScenario(c, store)
		if !exists {
			return notFound(c, "Scenario could not be found")
		}

		set, exists := result.Network.RouteDef(c.Params("route"))
		if !exists {
			return notFound(c, "Route definition could not be found")
		}

		return reduced(c, []string{"basic", "detailed"}, newAlternativeSetView(result.Network, set))
	}
}
