// Package docs registers the swagger documents served under /swagger/ by each service.
package docs

import "github.com/swaggo/swag"

const securityDefinitions = `"securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }`

const errorResponse = `{"description": "error", "schema": {"type": "object", "properties": {"error": {}}}}`

func idParam() string {
	return `{"type": "integer", "name": "id", "in": "path", "required": true}`
}

func transition(summary string) string {
	return `{
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Lifecycle"],
                "summary": "` + summary + `",
                "parameters": [` + idParam() + `],
                "responses": {
                    "200": {"description": "package after the transition"},
                    "401": ` + errorResponse + `,
                    "403": ` + errorResponse + `,
                    "404": ` + errorResponse + `,
                    "409": ` + errorResponse + `
                }
            }
        }`
}

const health = `"/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health Check",
                "responses": {"200": {"description": "available"}, "503": {"description": "a dependency is down"}}
            }
        }`

var docTemplatePackage = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        ` + health + `,
        "/packages": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Packages"],
                "summary": "Dashboard lists",
                "parameters": [{"type": "string", "enum": ["sent", "deliveries"], "default": "sent", "name": "view", "in": "query"}],
                "responses": {"200": {"description": "packages and active_count"}, "401": ` + errorResponse + `, "422": ` + errorResponse + `}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Packages"],
                "summary": "Create a package",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/dto.CreatePackageRequest"}}],
                "responses": {"201": {"description": "created package"}, "400": ` + errorResponse + `, "401": ` + errorResponse + `, "422": ` + errorResponse + `}
            }
        },
        "/packages/available": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Packages"],
                "summary": "Available packages",
                "responses": {"200": {"description": "pending packages, newest first"}}
            }
        },
        "/packages/tracked": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Packages"],
                "summary": "Tracked packages",
                "responses": {"200": {"description": "pending, assigned and in transit packages of the viewer"}}
            }
        },
        "/packages/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Packages"],
                "summary": "Package details",
                "parameters": [` + idParam() + `],
                "responses": {"200": {"description": "package, tracking view and allowed actions"}, "404": ` + errorResponse + `}
            }
        },
        "/packages/{id}/accept": ` + transition("Accept a package") + `,
        "/packages/{id}/start": ` + transition("Start delivery") + `,
        "/packages/{id}/deliver": ` + transition("Mark delivered") + `,
        "/packages/{id}/cancel": ` + transition("Cancel a package") + `,
        "/map": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Map"],
                "summary": "Map projection",
                "parameters": [{"type": "string", "name": "If-None-Match", "in": "header"}],
                "responses": {"200": {"description": "markers and routes"}, "304": {"description": "not modified"}}
            }
        }
    },
    "definitions": {
        "dto.CreatePackageRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "title": {"type": "string", "maxLength": 255},
                "description": {"type": "string", "maxLength": 1000},
                "recipient_phone": {"type": "string"},
                "weight": {"type": "number", "minimum": 0},
                "price": {"type": "number", "minimum": 0},
                "pickup_address": {"type": "string"},
                "pickup_latitude": {"type": "number", "minimum": -90, "maximum": 90},
                "pickup_longitude": {"type": "number", "minimum": -180, "maximum": 180},
                "dropoff_address": {"type": "string"},
                "dropoff_latitude": {"type": "number", "minimum": -90, "maximum": 90},
                "dropoff_longitude": {"type": "number", "minimum": -180, "maximum": 180}
            }
        }
    },
    ` + securityDefinitions + `
}`

var docTemplateTracker = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        ` + health + `,
        "/ws/devices": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Tracker"],
                "summary": "Device location stream",
                "parameters": [
                    {"type": "string", "enum": ["granted", "denied"], "default": "granted", "name": "location_permission", "in": "query"},
                    {"type": "string", "name": "access_token", "in": "query"}
                ],
                "responses": {"101": {"description": "switching protocols"}, "401": ` + errorResponse + `, "422": ` + errorResponse + `}
            }
        },
        "/tracker/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tracker"],
                "summary": "Tracker status",
                "responses": {"200": {"description": "supervisor state"}, "404": ` + errorResponse + `}
            }
        }
    },
    ` + securityDefinitions + `
}`

// SwaggerInfoPackage holds exported Swagger Info of the package service.
var SwaggerInfoPackage = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Droply Package Service API",
	Description:      "Package creation, lifecycle transitions, dashboards and the shared delivery map.",
	InfoInstanceName: "package",
	SwaggerTemplate:  docTemplatePackage,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

// SwaggerInfoTracker holds exported Swagger Info of the tracker service.
var SwaggerInfoTracker = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3001",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Droply Tracker Service API",
	Description:      "Deliverer device location streams and the location reporting loop.",
	InfoInstanceName: "tracker",
	SwaggerTemplate:  docTemplateTracker,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfoPackage.InstanceName(), SwaggerInfoPackage)
	swag.Register(SwaggerInfoTracker.InstanceName(), SwaggerInfoTracker)
}
