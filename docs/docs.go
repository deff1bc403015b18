// Package docs holds the swagger document served at /swagger. Keep it in
// step with the handler annotations.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/events": {
            "get": {
                "produces": ["text/event-stream"],
                "tags": ["events"],
                "summary": "Server-sent event stream",
                "parameters": [
                    {"type": "integer", "description": "Replay events after this id", "name": "since_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ws": {
            "get": {
                "tags": ["events"],
                "summary": "WebSocket event stream",
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        },
        "/api/state": {
            "get": {
                "produces": ["application/json"],
                "tags": ["signals"],
                "summary": "Current decision state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.State"}},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/api/signals": {
            "get": {
                "produces": ["application/json"],
                "tags": ["signals"],
                "summary": "List persisted signals",
                "parameters": [
                    {"type": "string", "description": "Asset", "name": "asset", "in": "query"},
                    {"type": "string", "description": "accumulate, hold or wait", "name": "action", "in": "query"},
                    {"type": "string", "description": "ISO 8601 lower bound", "name": "since", "in": "query"},
                    {"type": "string", "description": "ISO 8601 upper bound", "name": "until", "in": "query"},
                    {"type": "string", "description": "asc or desc", "name": "order", "in": "query"},
                    {"type": "integer", "description": "1..2000", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Signal"}}},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/api/items": {
            "get": {
                "produces": ["application/json"],
                "tags": ["items"],
                "summary": "List sentiment items",
                "parameters": [
                    {"type": "string", "name": "source", "in": "query"},
                    {"type": "string", "name": "label", "in": "query"},
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "number", "name": "min_score", "in": "query"},
                    {"type": "number", "name": "max_score", "in": "query"},
                    {"type": "integer", "description": "0 or 1", "name": "relevant", "in": "query"},
                    {"type": "integer", "description": "1..2000", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Item"}}},
                    "400": {"description": "Bad Request"}
                }
            }
        },
        "/api/impact/top": {
            "get": {
                "produces": ["application/json"],
                "tags": ["items"],
                "summary": "Highest impact items",
                "parameters": [
                    {"type": "integer", "description": "1..168", "name": "hours", "in": "query"},
                    {"type": "string", "name": "source", "in": "query"},
                    {"type": "integer", "description": "1..200", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Item"}}}}
            }
        },
        "/api/metrics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["signals"],
                "summary": "Aggregate counters",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Metrics"}}}
            }
        },
        "/api/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Buffered events",
                "parameters": [
                    {"type": "integer", "name": "since_id", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Event"}}}}
            }
        },
        "/api/summary": {
            "get": {
                "produces": ["application/json"],
                "tags": ["summary"],
                "summary": "Market commentary",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/advisor.Commentary"}}}
            }
        },
        "/api/series/prices": {
            "get": {
                "produces": ["application/json"],
                "tags": ["series"],
                "summary": "Candle series for charts",
                "parameters": [
                    {"type": "string", "name": "symbol", "in": "query"},
                    {"type": "string", "name": "timeframe", "in": "query"},
                    {"type": "integer", "description": "1..10080", "name": "minutes", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/series/mentions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["series"],
                "summary": "Per-minute mention counts",
                "parameters": [
                    {"type": "string", "name": "asset", "in": "query"},
                    {"type": "integer", "description": "1..10080", "name": "minutes", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/series/signals": {
            "get": {
                "produces": ["application/json"],
                "tags": ["series"],
                "summary": "Signal markers for charts",
                "parameters": [
                    {"type": "string", "name": "asset", "in": "query"},
                    {"type": "integer", "description": "1..10080", "name": "minutes", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/history/bootstrap": {
            "get": {
                "produces": ["application/json"],
                "tags": ["series"],
                "summary": "Mentions, prices and signals in one call",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/loglevel": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Current log level",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Change the log level",
                "parameters": [
                    {"type": "string", "description": "debug, info, warn, error", "name": "level", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"}
                }
            }
        }
    },
    "definitions": {
        "domain.State": {
            "type": "object",
            "properties": {
                "asset": {"type": "string"},
                "ema15": {"type": "number"},
                "mentions_15m": {"type": "integer"},
                "baseline_7d": {"type": "number"},
                "action": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Signal": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "asset": {"type": "string"},
                "ts": {"type": "string"},
                "ema15": {"type": "number"},
                "mentions": {"type": "integer"},
                "action": {"type": "string"},
                "price_close": {"type": "number"},
                "rsi14": {"type": "number"},
                "macd": {"type": "number"},
                "macd_signal": {"type": "number"},
                "atr_pct": {"type": "number"},
                "price_bias": {"type": "string", "x-nullable": true}
            }
        },
        "domain.Item": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "source": {"type": "string"},
                "asset": {"type": "string"},
                "ts": {"type": "string"},
                "text": {"type": "string"},
                "score": {"type": "number"},
                "label": {"type": "string"},
                "url": {"type": "string"},
                "llm_relevant": {"type": "boolean"},
                "impact": {"type": "number"}
            }
        },
        "domain.Metrics": {
            "type": "object",
            "properties": {
                "items_total": {"type": "integer"},
                "signals_total": {"type": "integer"},
                "items_last_15m": {"type": "integer"},
                "avg_score_1h": {"type": "number"}
            }
        },
        "domain.Event": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "type": {"type": "string"},
                "timestamp": {"type": "number"},
                "summary": {"type": "string"},
                "payload": {"type": "object"}
            }
        },
        "advisor.Commentary": {
            "type": "object",
            "properties": {
                "commentary": {"type": "string"},
                "model": {"type": "string"},
                "generated_at": {"type": "string"},
                "stale": {"type": "boolean"},
                "error": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Sentiment Alpha API",
	Description:      "Sentiment and price driven trading signals with live event streams.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
