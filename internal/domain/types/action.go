package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"
	ActionGeocodeFailed             = "geocode_failed"
	ActionPublishFailed             = "publish_failed"

	ActionTrackerStarted   = "tracker_started"
	ActionTrackerStopped   = "tracker_stopped"
	ActionLocationReported = "location_reported"
	ActionPermissionDenied = "location_permission_denied"
	ActionGeoCachePurged   = "geocache_purged"
)
