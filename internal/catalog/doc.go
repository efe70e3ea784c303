// Package catalog holds the authenticated user's list of converted files
// ("My Files"): loading it from the backend, filtering it locally by search
// term and file type, and downloading individual entries to disk.
//
// A failed reload keeps the last good list and reports the error separately;
// download errors never clobber the load error and vice versa.
package catalog
