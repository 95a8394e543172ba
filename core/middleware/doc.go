// Package middleware contains HTTP middleware for the ledger API.
//
// # Components
//
//   - auth: API key validation protecting every route.
//   - rayid: generates a RayID for every incoming request, stores it in the
//     request locals and echoes it in the X-Ray-ID response header.
//
// RayID must be registered first so that every later log line carries it.
package middleware
