// Package docs registers the swagger document of the status API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ledger": {
            "get": {
                "description": "Identifiers already replayed, as persisted after the last successful push",
                "produces": ["application/json"],
                "tags": ["ledger"],
                "summary": "Persisted ledger",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.LedgerResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "description": "Status of the latest replay run and the progress of repository enumeration",
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Latest run status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.StatusResponse"}}
                }
            }
        },
        "/sync": {
            "post": {
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Start a replay run",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.SyncResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "a replay run is already in progress"}
            }
        },
        "api.FetchProgress": {
            "type": "object",
            "properties": {
                "completed": {"type": "integer", "example": 7},
                "last_item": {"type": "string", "example": "octocat/hello-world"},
                "start_time": {"type": "string"},
                "total": {"type": "integer", "example": 12},
                "updated_at": {"type": "string"}
            }
        },
        "api.LedgerResponse": {
            "type": "object",
            "properties": {
                "branches": {"type": "array", "items": {"type": "string"}},
                "counts": {"type": "object", "additionalProperties": {"type": "integer"}},
                "issues": {"type": "array", "items": {"type": "integer"}},
                "prs": {"type": "array", "items": {"type": "integer"}},
                "shas": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.RunStatus": {
            "type": "object",
            "properties": {
                "finish_time": {"type": "string"},
                "last_error": {"type": "string", "example": "WORKING_COPY: push"},
                "pushed": {"type": "boolean"},
                "reconciled": {"type": "integer", "example": 0},
                "replayed": {"type": "object", "additionalProperties": {"type": "integer"}},
                "repositories": {"type": "integer", "example": 12},
                "run_id": {"type": "string", "example": "5f0c6f8e-2b7a-4c8e-9a3e-1d2f3a4b5c6d"},
                "start_time": {"type": "string"},
                "state": {"type": "string", "enum": ["idle", "running", "completed", "failed"], "example": "completed"}
            }
        },
        "api.StatusResponse": {
            "type": "object",
            "properties": {
                "progress": {"$ref": "#/definitions/api.FetchProgress"},
                "run": {"$ref": "#/definitions/api.RunStatus"}
            }
        },
        "api.SyncResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "started"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "GitHub Activity Mirror API",
	Description:      "Status and control of the activity mirror",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
