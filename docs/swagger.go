// Package docs Railzway Console API documentation
package docs

// Swagger documentation info
// @title Railzway Console API
// @version 1.0
// @description Customer console for the Railzway cloud platform - sessions, organizations, instances and onboarding

// @host localhost:8081
// @schemes http https

// Auth Endpoints
// @tag.name auth
// @tag.description OAuth2 login and cookie session management

// Organization Endpoints
// @tag.name organizations
// @tag.description Organization directory

// @tag.name onboarding
// @tag.description Organization onboarding wizard

// Instance Endpoints
// @tag.name instance
// @tag.description Instance status, streaming and lifecycle actions

// @tag.name profile
// @tag.description User profile settings

// @tag.name pricing
// @tag.description Billing catalog

// @tag.name admin
// @tag.description Operator endpoints

// @securityDefinitions.apikey AdminToken
// @in header
// @name X-Admin-Token
// @description Operator API token for admin endpoints.
