package docs

// @title           Droply Package Service API
// @version         1.0
// @description     Package creation, lifecycle transitions (accept, start, deliver, cancel), dashboards and the shared delivery map.

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
