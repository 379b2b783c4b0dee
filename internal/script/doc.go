// Package script models the expected-call script a benchmark test case declares.
//
// # Script Format
//
// A script is a JSON array. Each entry is either a single call or an
// any-order group:
//
//	[
//	  {"name": "get_weather", "arguments": {"city": "Paris"}, "result": "18C"},
//	  {"name": "get_time", "arguments": {}, "result": "12:00", "optional": true},
//	  {"any_order": [
//	    {"name": "book", "arguments": {"id": 1}, "result": "ok"},
//	    {"name": "book", "arguments": {"id": 2}, "result": "ok"}
//	  ]},
//	  {"finish_reason": "stop"}
//	]
//
// An entry with an "any_order" key becomes a Group; anything else becomes a
// Call. A call whose finish_reason is "stop" and whose name is empty is a
// stop sentinel: it carries no invocation and only records that the model
// must finish there.
//
// # Invariants
//
// Parse and New reject empty scripts, more than one stop node, a stop node
// that is not last, empty groups, stop requests inside groups and calls
// without a name. These checks run once at load time; the matcher never
// re-validates.
package script
