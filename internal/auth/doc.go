// Package auth supplies the bearer credential for API requests. A token set in
// configuration or MEDIACONV_TOKEN wins; otherwise the token persisted by
// `mediaconv auth set-token` is read from the token file.
//
// Token issuance is out of scope: the token is obtained elsewhere (for
// example from the web login) and pasted in.
package auth
