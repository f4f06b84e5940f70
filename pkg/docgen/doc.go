// Package docgen turns built dependency graphs into documentation:
// per-object summaries, cluster summaries and a package overview,
// rendered as Markdown pages or a self-contained HTML site.
//
// # Summarization
//
// [Summarizer.SummarizeGraph] walks the graph's topological order, so
// an object is always summarized after the objects it depends on. The
// prompt for an object carries a source excerpt plus the finished
// summaries of its direct dependencies, which keeps each call small
// while still giving the model the context underneath the object.
// [Summarizer.SummarizePackage] additionally produces one joint
// summary per cluster and an overview of the whole package.
//
// Generation is best-effort: when a call fails, the object falls back
// to a deterministic skeleton summary built from graph facts, the
// failure lands in [Docs.Errors], and the run continues. A Summarizer
// without a generator produces skeleton summaries only, which backs
// offline runs.
//
// # Generators
//
// [Generator] is the seam to the language model. [OpenAI] implements
// it on the OpenAI chat completions API (or any compatible gateway via
// its BaseURL). [Static] returns a fixed response and exists for tests.
// Finished summaries are cached by a hash of the prompt and the model
// name, so re-runs only pay for objects whose source or dependency
// context changed.
package docgen
