/*
Typed errors for graph marshalling and content negotiation.

Every failure surfaced by the graph, encoding and negotiate packages is a *SpanError
whose SpanErrorType identifies the failure class. Errors raised deep inside a
recursive walk carry the property / index path to the failing value, accumulated as
the stack unwinds.

This module defines two main objects for handing errors:

• SpanErrorType defines an error type.

• SpanError is an instance of an error which contains a SpanErrorType.

Default SpanErrorType Variables

Several pointers to SpanErrorType definitions are included in this package. Compare
against them with errors.Is:

	if errors.Is(err, spanerrors.CyclicReferenceError) {
		...
	}
*/
package spanerrors
