package constants

// API route constants shared by the router and tests
const (
	APIPrefix = "/api"
	APIv1     = "/api/v1"

	RouteRegister       = "/auth/register"
	RouteLogin          = "/auth/login"
	RouteMpesaCallback  = "/payments/mpesa/callback"
	RouteMpesaSTKPush   = "/payments/mpesa/stkpush"
	RoutePayPalOrders   = "/payments/paypal/orders"
	RoutePayPalCapture  = "/payments/paypal/orders/:id/capture"
	RouteChatCompletion = "/chat/completions"
	RouteActivities     = "/learning/activities"
	RouteSkills         = "/learning/skills"
	RouteSubscription   = "/subscriptions/me"
	RouteSubscriptions  = "/subscriptions"
	RouteProfile        = "/profile"
)
