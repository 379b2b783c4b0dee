// Package runner drives benchmark sessions against a model.
//
// A session seeds the conversation with the case's prompts, asks the model
// for one turn at a time and feeds each turn to a matcher.Session until the
// script terminates or fails. When the case carries a final-answer criterion
// the accumulated answer goes to the judge. Every session ends in exactly one
// verdict.Verdict; errors never escape Run.
//
// Sessions are sequential. RunSuite runs separate cases in parallel, bounded
// by Options.Concurrency, and returns verdicts in suite order.
package runner
