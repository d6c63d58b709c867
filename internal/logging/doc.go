// Package logging provides opt-in file-based logging with rotation.
// When the --debug flag is set, detailed logs are written to
// ~/.colsearch/logs/ for troubleshooting extractor and index runs.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
