// Package logging provides structured logging for govedirect.
//
// It wraps a zap logger behind package-level helpers so that the decoder, the
// monitor and the command line tool share one configuration.
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// With an empty level the VEDIRECT_LOG_LEVEL environment variable is used.
// When neither is set the logger is a no-op, so a library user sees no output
// unless they ask for it.
//
// # Protocol Logging
//
//	logging.LogFrame(fields)      // accepted TEXT frame, at debug level
//	logging.LogHexFrame(frame)    // raw HEX frame, at info level
//	logging.LogRawBytes("rx", p)  // hex and ASCII dump, at debug level
package logging
