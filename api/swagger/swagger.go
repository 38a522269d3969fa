package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "League Scheduler API",
        "description": "Round-robin league schedule generation with home/away balance and rematch spacing.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Schedules", "description": "Schedule generation, preview and saved schedules"},
        {"name": "Runs", "description": "Asynchronous generation runs"},
        {"name": "System", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["System"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/generate": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Generate schedules (legacy contract, no envelope)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LegacyGenerateResponse"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/generate": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Generate schedules",
                "description": "INFEASIBLE, EXHAUSTED and TIMED_OUT are reported in status with HTTP 200.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/preview": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Solve once and report the candidate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/runs": {
            "post": {
                "tags": ["Runs"],
                "summary": "Queue a generation run",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/runs/{id}": {
            "get": {
                "tags": ["Runs"],
                "summary": "Get a generation run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/save": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Save one accepted schedule of a proposal",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SaveScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Proposal not found or expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Persistence disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List saved schedules",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a saved schedule with its report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Schedules"],
                "summary": "Delete a saved schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/schedules/{id}/export": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Export a saved schedule",
                "produces": ["text/csv", "application/pdf"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/api/v1/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Aggregated service metrics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Division": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "teams": {"type": "array", "items": {"type": "string"}}
            }
        },
        "FixedMatchup": {
            "type": "object",
            "properties": {
                "week": {"type": "integer"},
                "team1": {"type": "string"},
                "team2": {"type": "string"},
                "direction": {"type": "string", "enum": ["either", "team1_away", "team2_away"]}
            }
        },
        "GenerateScheduleRequest": {
            "type": "object",
            "properties": {
                "teams": {"type": "array", "items": {"type": "string"}},
                "west_teams": {"type": "array", "items": {"type": "string"}},
                "east_teams": {"type": "array", "items": {"type": "string"}},
                "divisions": {"type": "array", "items": {"$ref": "#/definitions/Division"}},
                "weeks": {"type": "integer"},
                "fixed_matchups": {"type": "array", "items": {"$ref": "#/definitions/FixedMatchup"}},
                "max_solutions": {"type": "integer"}
            }
        },
        "Schedule": {
            "type": "object",
            "description": "Week number to list of [visitor, home] pairs.",
            "additionalProperties": {
                "type": "array",
                "items": {"type": "array", "items": {"type": "string"}, "minItems": 2, "maxItems": 2}
            }
        },
        "LegacyGenerateResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "solution_count": {"type": "integer"},
                "solutions": {"type": "array", "items": {"$ref": "#/definitions/Schedule"}}
            }
        },
        "SaveScheduleRequest": {
            "type": "object",
            "required": ["proposalId", "name"],
            "properties": {
                "proposalId": {"type": "string"},
                "solutionIndex": {"type": "integer"},
                "name": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
