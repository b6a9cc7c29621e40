// Package docs holds the OpenAPI document served at /swagger. Keep it in step
// with the swag annotations on the handlers in internal/http.
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
    "paths": {
        "/positions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["positions"],
                "summary": "List positions",
                "parameters": [
                    {"type": "integer", "format": "int64", "description": "Filter by meeting", "name": "meeting_id", "in": "query"},
                    {"type": "string", "description": "Filter by agenda item", "name": "agenda_item_id", "in": "query"},
                    {"type": "boolean", "description": "Filter by open state", "name": "is_open", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/election.Position"}}},
                    "400": {"description": "malformed filter", "schema": {"$ref": "#/definitions/apperr.AppError"}}
                }
            },
            "post": {
                "description": "Exactly one of meeting_id or meeting_code must be given. A code is resolved through the meeting service.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["positions"],
                "summary": "Create a position",
                "parameters": [
                    {"description": "Position payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.createPositionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/election.Position"}},
                    "400": {"description": "invalid input", "schema": {"$ref": "#/definitions/apperr.AppError"}},
                    "404": {"description": "meeting not found", "schema": {"$ref": "#/definitions/apperr.AppError"}},
                    "502": {"description": "meeting service unreachable or erroring; only a real 404 from it is reported as meeting not found", "schema": {"$ref": "#/definitions/apperr.AppError"}}
                }
            }
        },
        "/positions/{positionID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["positions"],
                "summary": "Get a position",
                "parameters": [
                    {"type": "integer", "format": "int64", "description": "Position ID", "name": "positionID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/election.Position"}},
                    "400": {"description": "invalid id", "schema": {"$ref": "#/definitions/apperr.AppError"}},
                    "404": {"description": "not found", "schema": {"$ref": "#/definitions/apperr.AppError"}}
                }
            }
        },
        "/positions/{positionID}/close": {
            "post": {
                "description": "Requires at least two accepted nominations. The poll is created in the voting service before the position is marked closed.",
                "produces": ["application/json"],
                "tags": ["positions"],
                "summary": "Close a position and open its poll",
                "parameters": [
                    {"type": "integer", "format": "int64", "description": "Position ID", "name": "positionID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/election.ClosedPosition"}},
                    "400": {"description": "already closed or not enough candidates", "schema": {"$ref": "#/definitions/apperr.AppError"}},
                    "404": {"description": "not found", "schema": {"$ref": "#/definitions/apperr.AppError"}},
                    "500": {"description": "poll creation failed", "schema": {"$ref": "#/definitions/apperr.AppError"}}
                }
            }
        },
        "/positions/{positionID}/nominations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["nominations"],
                "summary": "List nominations for a position",
                "parameters": [
                    {"type": "integer", "format": "int64", "description": "Position ID", "name": "positionID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/election.Nomination"}}},
                    "400": {"description": "invalid id", "schema": {"$ref": "#/definitions/apperr.AppError"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["nominations"],
                "summary": "Nominate a candidate",
                "parameters": [
                    {"type": "integer", "format": "int64", "description": "Position ID", "name": "positionID", "in": "path", "required": true},
                    {"description": "Nomination payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.nominateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/election.Nomination"}},
                    "400": {"description": "invalid input or position closed", "schema": {"$ref": "#/definitions/apperr.AppError"}},
                    "404": {"description": "position not found", "schema": {"$ref": "#/definitions/apperr.AppError"}},
                    "409": {"description": "already nominated", "schema": {"$ref": "#/definitions/apperr.AppError"}},
                    "429": {"description": "rate limited", "schema": {"$ref": "#/definitions/apperr.AppError"}}
                }
            }
        },
        "/positions/{positionID}/nominations/{username}/accept": {
            "post": {
                "produces": ["application/json"],
                "tags": ["nominations"],
                "summary": "Accept a nomination",
                "parameters": [
                    {"type": "integer", "format": "int64", "description": "Position ID", "name": "positionID", "in": "path", "required": true},
                    {"type": "string", "description": "Candidate username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/election.Nomination"}},
                    "400": {"description": "invalid id", "schema": {"$ref": "#/definitions/apperr.AppError"}},
                    "404": {"description": "nomination not found", "schema": {"$ref": "#/definitions/apperr.AppError"}}
                }
            }
        },
        "/positions/{positionID}/nominations/{username}/status": {
            "get": {
                "description": "Returns a list with zero or one nomination.",
                "produces": ["application/json"],
                "tags": ["nominations"],
                "summary": "Nomination status for a candidate",
                "parameters": [
                    {"type": "integer", "format": "int64", "description": "Position ID", "name": "positionID", "in": "path", "required": true},
                    {"type": "string", "description": "Candidate username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/election.Nomination"}}},
                    "400": {"description": "invalid id", "schema": {"$ref": "#/definitions/apperr.AppError"}}
                }
            }
        },
        "/ready": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "api.createPositionRequest": {
            "type": "object",
            "properties": {
                "agenda_item_id": {"type": "string"},
                "meeting_code": {"type": "string"},
                "meeting_id": {"type": "integer"},
                "position_name": {"type": "string"}
            }
        },
        "api.nominateRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"}
            }
        },
        "apperr.AppError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "election.ClosedPosition": {
            "type": "object",
            "properties": {
                "agenda_item_id": {"type": "string"},
                "candidates": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"},
                "is_open": {"type": "boolean"},
                "meeting_id": {"type": "integer"},
                "poll_id": {"type": "string"},
                "position_id": {"type": "integer"},
                "position_name": {"type": "string"}
            }
        },
        "election.Nomination": {
            "type": "object",
            "properties": {
                "accepted": {"type": "boolean"},
                "nominated_at": {"type": "string"},
                "position_id": {"type": "integer"},
                "username": {"type": "string"}
            }
        },
        "election.Position": {
            "type": "object",
            "properties": {
                "agenda_item_id": {"type": "string"},
                "created_at": {"type": "string"},
                "is_open": {"type": "boolean"},
                "meeting_id": {"type": "integer"},
                "poll_id": {"type": "string"},
                "position_id": {"type": "integer"},
                "position_name": {"type": "string"}
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
	Title:            "Election Service API",
	Description:      "Positions, nominations and poll hand-off for meeting elections",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
