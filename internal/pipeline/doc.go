// Package pipeline orchestrates the staged image-generation run.
//
// A run walks an ordered stage table. In three_step mode the stages are
// concept generation (reasoning endpoint with web search, no fallback),
// data integration (chat endpoint folding the sensor context into the
// concept, one fallback to the fallback model on a retryable failure), and
// image render. In two_step mode a single prompt-generation stage (web
// search included, chat-completions fallback) feeds the render directly.
//
// The failure contract is strict: a stage failure short-circuits the run,
// later stages never execute, and the outcome carries exactly the attempted
// results. A stage with a fallback gets at most one fallback attempt, taken
// only when the primary failure is retryable, and still contributes a
// single step result. Post-processing (resize, looping video, archive
// copies) happens after a successful render and can only downgrade the
// artifact set, never the run result.
package pipeline
