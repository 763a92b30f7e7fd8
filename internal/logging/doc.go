// Package logging builds the server's zap logger.
package logging
