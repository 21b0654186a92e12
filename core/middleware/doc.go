// Package middleware groups the HTTP middleware of the API server.
//
//   - auth: API key validation through the X-API-Key header.
//   - rayid: assigns every request a ray id, stored in the fiber locals and
//     echoed in the X-Ray-ID response header so logger.WithRayID can tag logs.
package middleware
