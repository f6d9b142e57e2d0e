package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/HappyLearnKE/HappyLearn/app/controllers"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/constants"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/middleware"
)

type ApiRouter struct {
}

// InstallRouter registers the JSON API consumed by the React client.
// The M-Pesa callback stays outside the JWT group: Safaricom calls it
// directly and authenticates by source IP, not by bearer token.
func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIPrefix, cors.New(), limiter.New(limiter.Config{
		Max: 300,
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "HappyLearn API",
		})
	})

	v1 := api.Group("/v1")

	// public
	v1.Post(constants.RouteRegister, controllers.HandleRegister)
	v1.Post(constants.RouteLogin, controllers.HandleLogin)
	v1.Post(constants.RouteMpesaCallback, controllers.HandleMpesaCallback)

	// protected
	auth := v1.Group("", middleware.JWTAuthMiddleware())
	auth.Post(constants.RouteMpesaSTKPush, controllers.HandleMpesaSTKPush)
	auth.Post(constants.RoutePayPalOrders, controllers.HandleCreatePayPalOrder)
	auth.Post(constants.RoutePayPalCapture, controllers.HandleCapturePayPalOrder)
	auth.Post(constants.RouteChatCompletion, controllers.HandleChatCompletions)
	auth.Post(constants.RouteActivities, controllers.HandleReportActivity)
	auth.Get(constants.RouteActivities, controllers.HandleListActivities)
	auth.Get(constants.RouteSkills, controllers.HandleListSkills)
	auth.Get(constants.RouteSubscription, controllers.HandleGetMySubscription)
	auth.Get(constants.RouteSubscriptions, controllers.HandleListMySubscriptions)
	auth.Get(constants.RouteProfile, controllers.HandleGetProfile)
	auth.Put(constants.RouteProfile, controllers.HandleUpdateProfile)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
