// Package pipeline runs the scrape, analyze, write workflow.
//
// A workflow run is a fixed sequence of steps executed by a Pipeline:
//
//	FetchStep -> AnalyzeStep -> WriteStep [-> NarrateStep]
//
// Each step reads the artifacts of the previous step from a *model.Run and
// records its own. A step that returns an error ends the run; in practice
// only FetchStep can fail, and then the analyzer and writer are never
// called. The Orchestrator wires the steps and is the entry point used by
// the CLI and the web server.
//
// Observers receive a StepEvent when a step starts, completes or fails.
// The web UI streams these events to the browser and the metrics layer
// records step durations from them.
//
// BatchProcessor runs independent workflows for many URLs with bounded
// concurrency using errgroup.
package pipeline
