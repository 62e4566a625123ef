// Package notifications delivers push notifications for import lifecycle
// events through an ntfy topic. Delivery failures are reported to callers but
// never block the pipeline.
package notifications
