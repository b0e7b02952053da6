// Package instrument wraps the outcome of a plugin operation and records
// exactly one success or failure, with its latency, without changing what the
// caller observes.
//
// Outcomes come in three shapes, modelled as the sealed Outcome union:
//
//	Immediate[T]    a value that is already available
//	Awaitable[T]    a channel that eventually delivers a Result, which may carry an error
//	CallbackOnly[T] a handle that can only report completion, never failure
//
// CallbackOnly outcomes are always recorded as successes; failures for them
// arrive later as error text and are reconciled by the correlator package.
package instrument
