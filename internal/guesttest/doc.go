// Package guesttest runs scripted guests against the host's RPC surface in
// a stripped-down JavaScript runtime. It exists for exercising host behavior
// end to end without a browser: a script calls host.call(method, params) and
// the harness routes it to whatever dispatch function the test wires in.
package guesttest
