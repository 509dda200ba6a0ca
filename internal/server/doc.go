// Package server implements the HTTP server for the peoplebox curation
// actions API.
//
// This package provides:
//   - Cleaning/validation actions over people-dossier payloads
//   - API-key enforcement with constant-time comparison
//   - Per-IP rate limiting to prevent abuse
//   - Health and status endpoints for monitoring
//   - Structured logging of all HTTP requests
//
// The server integrates with other packages:
//   - internal/policy: Curation rules and their YAML config
//   - internal/people: Dossier cleaning, validation, and CSV pivoting
//   - internal/textclean: Raw-paste repair before JSON parsing
//   - internal/ctgov: ClinicalTrials.gov registry lookups
//   - internal/history: SQLite-based run-history tracking
//
// Security features:
//   - Shared-key authentication on all action routes
//   - Content-Type validation (application/json only)
//   - Payload size limits (1MB max)
//   - Rate limiting (global and per-action tiers)
package server
