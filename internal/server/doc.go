// Package server serves the scrapeflow web UI and JSON API with gin.
//
// The single page at / lets a user enter a URL and run the workflow. Step
// progress is streamed over a gorilla/websocket connection at /ws/run, and
// a plain form post to /run works without JavaScript. Runs are recorded in
// the history store when one is configured, and Prometheus metrics are
// exposed at /metrics.
package server
