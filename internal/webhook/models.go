// Package webhook implements the sync-trigger HTTP endpoint.
//
// This replaces the ad-hoc Python webhook that CI used to POST to. It
// serves exactly two routes: GET /health and POST /sync?token=<t>; a
// matching token (when one is configured) triggers the external sync
// script and the response carries whatever the script printed.
package webhook

// SyncResponse is the JSON body of a completed /sync call. Exactly
// these three fields, whatever the script's exit code was.
type SyncResponse struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
}
