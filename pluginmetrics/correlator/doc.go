// Package correlator turns side-channel error text into corrections on the
// aggregate store.
//
// Operations observed through a CallbackOnly outcome are always recorded as
// successes. When the host later sees an error line such as
//
//	[Error - 10:42:01] Request textDocument/hover failed: timeout
//
// the correlator extracts the operation name and asks the aggregator to
// reclassify one recorded success of that key as a failure.
package correlator
