// Package google provides OAuth2 authentication for the Gmail API.
//
// Credentials come from a Google Cloud OAuth client file (credentials.json);
// the granted token is cached in a token file and refreshed automatically.
package google
