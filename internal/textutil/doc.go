// Package textutil holds small string helpers shared by the catalog and
// delivery layers: Unicode normalization, rune-safe truncation, and compact
// duration formatting for option labels.
package textutil
