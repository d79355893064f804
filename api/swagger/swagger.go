package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Avalia API",
        "description": "Moderated academic review platform",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Registration and sessions"},
        {"name": "Users", "description": "Account management"},
        {"name": "Institutions", "description": "Institution catalog"},
        {"name": "Courses", "description": "Course catalog"},
        {"name": "Professors", "description": "Professor catalog"},
        {"name": "Subjects", "description": "Subject catalog"},
        {"name": "Reviews", "description": "Review lifecycle and metrics"},
        {"name": "Comments", "description": "Comments under approved reviews"},
        {"name": "ChangeRequests", "description": "Staged catalog edits"},
        {"name": "Exports", "description": "Moderation queue downloads"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a new account",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue tokens",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reviews": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List reviews",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Reviews"],
                "summary": "Submit a review",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/reviews/{id}": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Get one review",
                "responses": {"200": {"description": "OK"}}
            },
            "patch": {
                "tags": ["Reviews"],
                "summary": "Patch a review or change its approval",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Reviews"],
                "summary": "Delete a review",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/reviews/metrics": {
            "get": {
                "tags": ["Reviews"],
                "summary": "Aggregate rating metrics for one target",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reviews/{id}/comments": {
            "get": {
                "tags": ["Comments"],
                "summary": "List comments of an approved review",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/comments": {
            "post": {
                "tags": ["Comments"],
                "summary": "Attach a comment to an approved review",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/change-requests": {
            "get": {
                "tags": ["ChangeRequests"],
                "summary": "List change requests",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["ChangeRequests"],
                "summary": "Stage a catalog edit",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/change-requests/{id}/approve": {
            "post": {
                "tags": ["ChangeRequests"],
                "summary": "Approve a pending change request",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/change-requests/{id}/reject": {
            "post": {
                "tags": ["ChangeRequests"],
                "summary": "Reject a pending change request",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "skip": {"type": "integer"},
                "limit": {"type": "integer"},
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
                "pagination": {"$ref": "#/definitions/Pagination"}
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
