package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/travigo/cellroutes/pkg/api/routes"
)

func NewApp(store *routes.Store) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.ScenariosRouter(group.Group("/scenarios"), store)
	routes.ReportsRouter(group.Group("/reports"), store)

	return webApp
}

func SetupServer(listen string, store *routes.Store) error {
	return NewApp(store).Listen(listen)
}
