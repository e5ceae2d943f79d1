// Package driver defines the capability contract implemented by device
// drivers and the registry that maps device-class identifiers to driver
// factories.
//
// A driver owns the connection to one physical or virtual device. The fleet
// reconciler never talks to device hardware directly: it resolves a Factory
// through the Registry, asks the resulting Device to connect, and observes
// the device through entity-update and log-message subscriptions.
//
// Event emission uses explicit observer registration. OnEntity and OnMessage
// return a detach function; the reconciler calls it when the device is torn
// down so no callback outlives its device.
package driver
