// Package docs holds the swagger description of the REST surface.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "in": "header", "name": "X-API-Key"}
    },
    "paths": {
        "/health": {
            "get": {
                "tags": ["system"],
                "summary": "Liveness check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK"},
                    "503": {"description": "database unreachable"}
                }
            }
        },
        "/send_message": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["messages"],
                "summary": "Relay a user message to support",
                "description": "Accepts multipart/form-data (photo parts) or JSON (photo_url).",
                "consumes": ["application/json", "multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "schema": {"$ref": "#/definitions/restapi.SendMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/restapi.SendMessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/restapi.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/restapi.ErrorResponse"}}
                }
            }
        },
        "/register_device": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["devices"],
                "summary": "Register a push token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/restapi.RegisterDeviceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/restapi.ErrorResponse"}}
                }
            }
        },
        "/message_history/{user_id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["messages"],
                "summary": "Conversation history of a user",
                "description": "Greets the user once per day before returning the history.",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "user_id", "required": true},
                    {"type": "integer", "default": 50, "in": "query", "name": "limit"},
                    {"type": "string", "in": "query", "name": "user_name"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/restapi.HistoryResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/restapi.ErrorResponse"}}
                }
            }
        },
        "/check_device/{user_id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["devices"],
                "summary": "Whether a user has a registered device",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "user_id", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/restapi.CheckDeviceResponse"}}
                }
            }
        },
        "/support_mode/{user_id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["support"],
                "summary": "Current support mode of a user",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "user_id", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/restapi.SupportModeResponse"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["support"],
                "summary": "Force the support mode of a user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "in": "path", "name": "user_id", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/restapi.SupportModeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/restapi.SupportModeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/restapi.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "restapi.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "restapi.SendMessageRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "user_name": {"type": "string"},
                "message": {"type": "string"},
                "photo_url": {"type": "string"}
            }
        },
        "restapi.SendMessageResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "mode": {"type": "string", "enum": ["ai", "human"]},
                "message_id": {"type": "integer"},
                "message_ids": {"type": "array", "items": {"type": "integer"}},
                "telegram_message_id": {"type": "integer"},
                "photo_url": {"type": "string"},
                "photo_urls": {"type": "array", "items": {"type": "string"}}
            }
        },
        "restapi.RegisterDeviceRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "string"},
                "platform": {"type": "string", "enum": ["android", "ios"]},
                "fcm_token": {"type": "string"},
                "apns_token": {"type": "string"},
                "token": {"type": "string"},
                "device_id": {"type": "string"}
            }
        },
        "domain.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "user_id": {"type": "string"},
                "message": {"type": "string"},
                "photo_url": {"type": "string"},
                "direction": {"type": "string", "enum": ["user", "support"]},
                "external_message_id": {"type": "integer"},
                "created_at": {"type": "string"}
            }
        },
        "restapi.HistoryResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}}
            }
        },
        "restapi.CheckDeviceResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "user_id": {"type": "string"},
                "has_device": {"type": "boolean"},
                "devices": {"type": "integer"},
                "platforms": {"type": "array", "items": {"type": "string"}}
            }
        },
        "restapi.SupportModeRequest": {
            "type": "object",
            "properties": {"mode": {"type": "string", "enum": ["ai", "human"]}}
        },
        "restapi.SupportModeResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "user_id": {"type": "string"},
                "mode": {"type": "string", "enum": ["ai", "human"]},
                "last_user_message_at": {"type": "string"},
                "switched_at": {"type": "string"},
                "timeout_seconds": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Smile support relay API",
	Description:      "Relays mobile app users to the Telegram support group and the AI assistant.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
