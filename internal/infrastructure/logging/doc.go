// Package logging provides structured logging for the fleet connector.
//
// It wraps log/slog with configuration-driven format and level selection and
// stamps every record with the service name and build version. Device driver
// log messages (icon/text pairs) are forwarded through this logger by the
// fleet reconciler.
package logging
