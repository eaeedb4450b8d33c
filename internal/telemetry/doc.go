// Package telemetry connects the message bus to the rule engine and the
// time-series store.
//
// The Ingestor consumes telemetry envelopes delivered by SubscribeTelemetry,
// records each value and feeds it to the automation engine. The
// CommandPublisher sends automation and feedback commands to the command
// topic. The FeedbackLoop streams <id>-F channels and republishes new values
// as commands.
//
// The command topic must never be matched by the telemetry filter
// (see CheckTopics); otherwise the core would consume its own commands.
package telemetry
