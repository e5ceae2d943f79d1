// Package fleet implements the reconciler and topic router at the heart of
// the connector.
//
// A fleet configuration document arrives on the broker's config topic and
// entirely replaces the previous one: the Reconciler tears down the current
// device set, instantiates drivers for the new one sequentially, wires each
// device's entity and message events into the Publisher, and registers its
// command subscriptions with the Router. Per-device failures (unknown class,
// malformed entry, connect refusal) are logged and isolated; they never abort
// the rest of the reconciliation.
//
// The Router owns the live topic to per-device handler table and keeps the
// broker's subscription set consistent with it. The Publisher republishes
// device-originated entity state, deduplicating descriptor publication per
// reconciliation epoch. The Discovery generator emits home-automation hub
// metadata and caches announced topics until the hub reports a restart.
package fleet
