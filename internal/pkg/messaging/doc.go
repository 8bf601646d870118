// Package messaging publishes and consumes dispatch jobs over a message broker.
//
// Drivers wrap NATS, Kafka, NSQ, Google Pub/Sub, or an in-process memory bus.
// Every driver acknowledges a message before the handler runs, so a message
// is delivered at most once and a failing handler never causes redelivery.
package messaging
