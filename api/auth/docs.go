// Package auth holds the swagger document served at /swagger/. It is maintained by
// hand and must be kept in step with the swag annotations in internal/auth/http.
package auth

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
		"/auth/login": {
			"post": {
				"description": "Verifies email and password within the tenant named by the Host header.\nReturns an access token and sets the refreshToken cookie.",
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"Auth"
				],
				"summary": "Log in",
				"parameters": [
					{
						"description": "Credentials",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/authsdk.LoginRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.LoginResponse"
						}
					},
					"400": {
						"description": "Tenant not identified, or missing email/password",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"401": {
						"description": "Invalid email or password",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"429": {
						"description": "Too many login attempts",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/auth/refresh": {
			"post": {
				"description": "Exchanges the refreshToken cookie for a new access token and a new refresh cookie.\nThe presented refresh token is revoked and cannot be used again.\nWhen reuse detection is enabled, presenting an already rotated token revokes every session of the user,\nincluding the one issued by the rotation.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Auth"
				],
				"summary": "Rotate the refresh token",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.LoginResponse"
						}
					},
					"401": {
						"description": "Refresh token not found, or invalid or expired",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/auth/logout": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Revokes every active refresh token of the caller and clears the refresh cookie.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Auth"
				],
				"summary": "Log out everywhere",
				"responses": {
					"200": {
						"description": "Logged out successfully",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/auth/revoke-token": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Revokes the refresh token in the refreshToken cookie. Other sessions stay active.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Auth"
				],
				"summary": "Revoke the current refresh token",
				"responses": {
					"200": {
						"description": "Token revoked",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"400": {
						"description": "Token is required",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					},
					"404": {
						"description": "Token not found",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/auth/me": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"description": "Returns the identity carried by the access token. No database lookup is made.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Auth"
				],
				"summary": "Current user",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.MeResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/authsdk.MessageResponse"
						}
					}
				}
			}
		},
		"/livez": {
			"get": {
				"description": "Always 200 while the process is serving requests.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Health"
				],
				"summary": "Liveness probe",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.HealthResponse"
						}
					}
				}
			}
		},
		"/readyz": {
			"get": {
				"description": "Pings the database and, when configured, redis.",
				"produces": [
					"application/json"
				],
				"tags": [
					"Health"
				],
				"summary": "Readiness probe",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/authsdk.HealthResponse"
						}
					},
					"503": {
						"description": "Service Unavailable",
						"schema": {
							"$ref": "#/definitions/authsdk.HealthResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"authsdk.LoginRequest": {
			"type": "object",
			"required": [
				"email",
				"password"
			],
			"properties": {
				"email": {
					"type": "string",
					"maxLength": 254
				},
				"password": {
					"type": "string",
					"maxLength": 1024
				}
			}
		},
		"authsdk.UserView": {
			"type": "object",
			"properties": {
				"userId": {
					"type": "integer"
				},
				"email": {
					"type": "string"
				},
				"firstName": {
					"type": "string"
				},
				"lastName": {
					"type": "string"
				},
				"organizationName": {
					"type": "string"
				},
				"roles": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"authsdk.LoginResponse": {
			"type": "object",
			"properties": {
				"accessToken": {
					"type": "string"
				},
				"expiresAt": {
					"type": "string"
				},
				"user": {
					"$ref": "#/definitions/authsdk.UserView"
				}
			}
		},
		"authsdk.MeResponse": {
			"type": "object",
			"properties": {
				"userId": {
					"type": "integer"
				},
				"email": {
					"type": "string"
				},
				"name": {
					"type": "string"
				},
				"tenantId": {
					"type": "integer"
				},
				"organizationId": {
					"type": "integer"
				},
				"roles": {
					"type": "array",
					"items": {
						"type": "string"
					}
				}
			}
		},
		"authsdk.MessageResponse": {
			"type": "object",
			"properties": {
				"message": {
					"type": "string"
				}
			}
		},
		"authsdk.HealthResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"checks": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "JWT access token. Format: \"Bearer {token}\".",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "acme.localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Clubfig Authentication Service API",
	Description:      "Tenant-scoped login with short-lived HS256 access tokens and rotating refresh tokens.\nThe tenant is taken from the first label of the Host header.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
