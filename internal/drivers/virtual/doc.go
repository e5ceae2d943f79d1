// Package virtual implements an in-process simulated device driver.
//
// A virtual device needs no hardware: it holds a switch entity and a
// temperature sensor entity in memory and answers commands immediately.
// It exists to exercise the full connector pipeline (registry, reconciler,
// router, publisher, discovery) in development setups and tests.
package virtual
