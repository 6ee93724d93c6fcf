// Package filters stores per-user inbox filter settings and turns the
// active filters into a Gmail search query.
package filters
