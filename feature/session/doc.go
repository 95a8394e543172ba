// Package session provides the authenticated HTTP client used to read the catalog.
//
// Cookies are kept in a Jar that can be saved to and restored from a JSON file, so
// a login survives between runs. Setup probes the catalog home page; when it shows
// the identity provider's sign-in page, the user is prompted for credentials while
// the login page is loaded in the background, the credentials are posted, and the
// SAML assertion is forwarded to the catalog.
//
// Multi-factor browser logins are not supported. Cookies obtained elsewhere can be
// placed in the cookie file instead.
package session
