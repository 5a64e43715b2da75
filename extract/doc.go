// Package extract turns raw PDF bytes into plain text and splits that text
// into bounded, overlapping chunks sized for embedding calls.
package extract
