// Package handler implements the HTTP handlers of the monitoring API.
//
// # Handlers
//
// RunHandler exposes stored simulation runs:
//
//	GET    /api/runs                 list runs, oldest first
//	POST   /api/runs/import          store a json or yaml run log, ?format=json|yaml
//	GET    /api/runs/{id}            one run
//	DELETE /api/runs/{id}            remove a run and its ticks
//	GET    /api/runs/{id}/summary    loss fractions and tracking error
//	GET    /api/runs/{id}/ticks      tick log, ?format=tsv|json|yaml
//
// Middleware provides request logging and panic recovery.
//
// # Response Format
//
// Success responses return JSON data, except tick exports which use the
// content type of the requested format. Error responses return JSON with
// {error, details} structure; unknown runs map to 404.
package handler
