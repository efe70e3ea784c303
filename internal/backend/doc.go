// Package backend maps the conversion service's HTTP operations onto typed
// calls: text and video submission, artifact retrieval, the file listing and
// file download. Every call goes through apiclient, so it carries the bearer
// credential and fails with an apiclient.RequestError.
package backend
