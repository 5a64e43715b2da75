// Package search answers semantic queries over ingested documents, per
// document or across the whole catalog.
package search
