// Package httpclient builds the HTTP client shared by the catalog walker, the fingerprint
// source and the community destination.
//
// Every request passes through a token-bucket limiter (golang.org/x/time/rate). The sync
// engine already sleeps between exams, but listing an existing category downloads every
// exam in it back to back; the limiter keeps those bursts polite as well.
package httpclient
