package docs

// @title           Droply Tracker Service API
// @version         1.0
// @description     Deliverer device location streams. While a deliverer has packages in transit the service subscribes to the device and records its position.

// @host      localhost:3001
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. Websocket clients may pass it as the access_token query parameter.
