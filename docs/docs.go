// Package docs registers the API description served at /swagger. Keep it in
// step with the handler annotations when routes change.
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
        "/auth/token": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Mint a bearer token for a portal user",
                "parameters": [
                    {"description": "role and display name", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.Actor"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/auth.Token"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/schedules": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["schedules"],
                "summary": "List schedule entries",
                "parameters": [
                    {"type": "string", "description": "class", "name": "class", "in": "query"},
                    {"type": "string", "description": "weekday", "name": "day", "in": "query"},
                    {"type": "string", "description": "batch", "name": "batch", "in": "query"},
                    {"type": "string", "description": "YYYY-MM-DD", "name": "date", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.ScheduleEntry"}}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["schedules"],
                "summary": "Create or replace the entry for a class slot",
                "parameters": [
                    {"description": "entry", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.scheduleRequest"}},
                    {"type": "integer", "description": "write only if the stored version matches (0 = must not exist)", "name": "expectedVersion", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ScheduleEntry"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/results": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["results"],
                "summary": "Record a test result",
                "parameters": [
                    {"description": "result", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/records.ResultInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.ResultRecord"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/complaints": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["complaints"],
                "summary": "File a complaint about a student",
                "parameters": [
                    {"description": "complaint", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/records.ComplaintInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/records.FiledComplaint"}},
                    "409": {"description": "Conflict", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "auth.Token": {
            "type": "object",
            "properties": {
                "accessToken": {"type": "string"},
                "expiresAt": {"type": "string"}
            }
        },
        "models.Actor": {
            "type": "object",
            "properties": {
                "displayName": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "handlers.scheduleRequest": {
            "type": "object",
            "properties": {
                "batch": {"type": "string"},
                "class": {"type": "string"},
                "date": {"type": "string"},
                "day": {"type": "string"},
                "endTime": {"type": "string"},
                "notes": {"type": "string"},
                "roomNumber": {"type": "string"},
                "startTime": {"type": "string"},
                "subject": {"type": "string"},
                "teacherName": {"type": "string"}
            }
        },
        "models.ScheduleEntry": {
            "type": "object",
            "properties": {
                "batch": {"type": "string"},
                "class": {"type": "string"},
                "createdAt": {"type": "string"},
                "createdBy": {"type": "string"},
                "date": {"type": "string"},
                "day": {"type": "string"},
                "endTime": {"type": "string"},
                "key": {"type": "string"},
                "notes": {"type": "string"},
                "roomNumber": {"type": "string"},
                "startTime": {"type": "string"},
                "subject": {"type": "string"},
                "teacherName": {"type": "string"},
                "updatedAt": {"type": "string"},
                "updatedBy": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "records.ResultInput": {
            "type": "object",
            "properties": {
                "batch": {"type": "string"},
                "class": {"type": "string"},
                "marks": {"type": "number"},
                "outOf": {"type": "number"},
                "remarks": {"type": "string"},
                "studentName": {"type": "string"},
                "subject": {"type": "string"},
                "testDate": {"type": "string"}
            }
        },
        "models.ResultRecord": {
            "type": "object",
            "properties": {
                "batch": {"type": "string"},
                "class": {"type": "string"},
                "createdAt": {"type": "string"},
                "createdBy": {"type": "string"},
                "id": {"type": "string"},
                "marks": {"type": "number"},
                "outOf": {"type": "number"},
                "remarks": {"type": "string"},
                "studentName": {"type": "string"},
                "subject": {"type": "string"},
                "testDate": {"type": "string"}
            }
        },
        "records.ComplaintInput": {
            "type": "object",
            "properties": {
                "batch": {"type": "string"},
                "class": {"type": "string"},
                "severity": {"type": "string"},
                "studentName": {"type": "string"},
                "text": {"type": "string"}
            }
        },
        "records.FiledComplaint": {
            "type": "object",
            "properties": {
                "batch": {"type": "string"},
                "bucket": {"type": "string"},
                "class": {"type": "string"},
                "id": {"type": "string"},
                "reportedBy": {"type": "string"},
                "severity": {"type": "string"},
                "studentName": {"type": "string"},
                "text": {"type": "string"},
                "timestamp": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {"type": "apiKey", "name": "x-api-key", "in": "header"},
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "School Portal API",
	Description:      "Class schedules, results, complaints, syllabus progress and site traffic.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
