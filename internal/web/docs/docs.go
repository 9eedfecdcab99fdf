// Package docs registers the OpenAPI description of the hirefactory HTTP API
// with swag. It is produced from the handler annotations in internal/web;
// regenerate it with go generate ./internal/web after changing them.
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
        "/api/runs": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "List archived runs",
                "parameters": [
                    {"type": "integer", "description": "Maximum runs, newest first", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/web.RunListItem"}}}
                }
            },
            "post": {
                "description": "Runs Interpret, Coordinate, Research, Execute and Review for one free-text request",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Run the pipeline",
                "parameters": [
                    {"description": "Recruitment request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/web.RunRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/pipeline.Report"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/web.RunError"}},
                    "502": {"description": "A stage aborted the run", "schema": {"$ref": "#/definitions/web.RunError"}}
                }
            }
        },
        "/api/runs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["runs"],
                "summary": "Get an archived run",
                "parameters": [
                    {"type": "string", "description": "Run id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/pipeline.Report"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/web.RunError"}}
                }
            }
        },
        "/api/candidates": {
            "get": {
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "List candidates",
                "parameters": [
                    {"type": "integer", "description": "Maximum candidates", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/db.Candidate"}}}
                }
            }
        },
        "/api/candidates/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["candidates"],
                "summary": "Get a candidate with interviews, proposals and compliance results",
                "parameters": [
                    {"type": "string", "description": "Candidate id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/web.CandidateDetail"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/web.RunError"}}
                }
            }
        },
        "/api/policies": {
            "get": {
                "produces": ["application/json"],
                "tags": ["policies"],
                "summary": "List or search policies",
                "parameters": [
                    {"type": "string", "description": "Keyword query", "name": "q", "in": "query"},
                    {"type": "string", "description": "Policy type filter", "name": "type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Ranked matches when q is set, otherwise the stored policy rows", "schema": {"type": "array", "items": {"$ref": "#/definitions/pipeline.PolicyDoc"}}}
                }
            }
        },
        "/api/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["stats"],
                "summary": "Analytics summaries",
                "parameters": [
                    {"type": "string", "description": "Only rows on or after this date (YYYY-MM-DD)", "name": "since", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        }
    },
    "definitions": {
        "web.RunRequest": {
            "type": "object",
            "properties": {"request": {"type": "string"}}
        },
        "web.RunError": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "run_id": {"type": "string"},
                "stage": {"type": "string"},
                "audit_log": {"type": "array", "items": {"type": "string"}}
            }
        },
        "web.RunListItem": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "request": {"type": "string"},
                "candidate_id": {"type": "string"},
                "validation_status": {"type": "string"},
                "fallbacks": {"type": "array", "items": {"type": "string"}},
                "started_at": {"type": "string"},
                "duration_ms": {"type": "integer"}
            }
        },
        "web.CandidateDetail": {
            "type": "object",
            "properties": {
                "candidate": {"$ref": "#/definitions/db.Candidate"},
                "interviews": {"type": "array", "items": {"type": "object"}},
                "proposals": {"type": "array", "items": {"type": "object"}},
                "compliance": {"type": "array", "items": {"type": "object"}}
            }
        },
        "db.Candidate": {
            "type": "object",
            "properties": {
                "candidate_id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "location": {"type": "string"},
                "resume_attached": {"type": "boolean"},
                "status": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "pipeline.PolicyDoc": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "metadata": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "pipeline.Report": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "request": {"type": "string"},
                "final_output": {"type": "object"},
                "audit_log": {"type": "array", "items": {"type": "string"}},
                "stages": {"type": "array", "items": {"type": "object"}},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "hirefactory API",
	Description:      "Runs recruitment requests through the five-stage pipeline and exposes the record store.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
