package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Billing API",
        "description": "Payment plans, installment allocation and overdue tracking for university events",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Plans", "description": "Payment plans and installment schedules"},
        {"name": "Payments", "description": "Payment recording and allocation"},
        {"name": "Benefits", "description": "Scholarship and discount quotes"},
        {"name": "Students", "description": "Per student account views"},
        {"name": "Statistics", "description": "Event roll-ups, exports and the overdue sweep"},
        {"name": "Documents", "description": "Signed document downloads"}
    ],
    "paths": {
        "/plans": {
            "get": {
                "tags": ["Plans"],
                "summary": "List payment plans",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "eventId", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Plans"],
                "summary": "Create payment plan",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid configuration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate plan", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Not enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}": {
            "get": {
                "tags": ["Plans"],
                "summary": "Get payment plan with installments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/restructure": {
            "patch": {
                "tags": ["Plans"],
                "summary": "Restructure payment plan",
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RestructurePlanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid configuration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/cancel": {
            "post": {
                "tags": ["Plans"],
                "summary": "Cancel payment plan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CancelPlanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payments": {
            "get": {
                "tags": ["Payments"],
                "summary": "List payments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "eventId", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payments"],
                "summary": "Record a payment",
                "description": "JSON body, or multipart/form-data with the same fields plus an optional receipt_image file.",
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Not enrolled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Overpayment, insufficient amount or invalid installment reference", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/benefits/quote": {
            "post": {
                "tags": ["Benefits"],
                "summary": "Quote benefit reductions on a fee",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BenefitQuoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/benefits/promo-codes/{code}": {
            "get": {
                "tags": ["Benefits"],
                "summary": "Validate a promotional code",
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "query", "required": true, "type": "string"},
                    {"name": "eventId", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/events/{eventId}/summary": {
            "get": {
                "tags": ["Students"],
                "summary": "Student account summary for an event",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/events/{eventId}/eligibility": {
            "get": {
                "tags": ["Students"],
                "summary": "Certificate eligibility",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/events/{eventId}/status/recompute": {
            "post": {
                "tags": ["Students"],
                "summary": "Rebuild the tuition flag from installments",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/events/{eventId}/statement": {
            "get": {
                "tags": ["Students"],
                "summary": "Download a PDF statement of account",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF", "schema": {"type": "file"}}
                }
            }
        },
        "/installments/overdue/sweep": {
            "post": {
                "tags": ["Statistics"],
                "summary": "Run the overdue sweep now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Sweep already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/statistics": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Payment statistics of an event",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/statistics/export": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Export payment statistics of an event",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/events/{eventId}/overdue-students": {
            "get": {
                "tags": ["Statistics"],
                "summary": "Students with overdue installments",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/documents/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download a supporting document",
                "security": [],
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "401": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreatePlanRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "event_id": {"type": "string"},
                "installment_count": {"type": "integer", "minimum": 1, "maximum": 60},
                "total_amount": {"type": "string", "example": "300.00"},
                "apply_benefits": {"type": "boolean"},
                "agreement_reason": {"type": "string"}
            },
            "required": ["student_id", "event_id"]
        },
        "RestructurePlanRequest": {
            "type": "object",
            "properties": {
                "installment_count": {"type": "integer", "minimum": 1, "maximum": 60},
                "total_amount": {"type": "string", "example": "200.00"},
                "reason": {"type": "string"}
            }
        },
        "CancelPlanRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "SubmitPaymentRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "event_id": {"type": "string"},
                "amount": {"type": "string", "example": "120.00"},
                "category": {"type": "string", "enum": ["matriculation", "single_installment", "partial_tuition", "full_tuition", "certificate", "miscellaneous"]},
                "method": {"type": "string", "enum": ["cash", "transfer", "card", "check", "deposit", "mobile"]},
                "installment_id": {"type": "string"},
                "installment_ids": {"type": "array", "items": {"type": "string"}},
                "paid_at": {"type": "string", "format": "date-time"},
                "notes": {"type": "string"},
                "transaction_id": {"type": "string"},
                "receipt_institution": {"type": "string"},
                "receipt_code": {"type": "string"}
            },
            "required": ["student_id", "event_id", "amount", "category", "method"]
        },
        "BenefitQuoteRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "event_id": {"type": "string"},
                "scope": {"type": "string", "enum": ["matriculation", "tuition", "certificate"]},
                "base_amount": {"type": "string"}
            },
            "required": ["student_id", "event_id", "scope"]
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
