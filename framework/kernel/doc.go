// Package kernel compiles controller metadata into a route table and runs
// every request through the dispatch pipeline.
//
//	k, _ := kernel.New(c, kernel.Options{GlobalPrefix: "api", Logger: log})
//	_ = k.Register(catsController)
//	http.ListenAndServe(":8000", k)
//
// Handler arguments are filled from their bindings, run through the pipes
// and converted to the argument type. Handlers may return nothing, a value,
// an error, or a value and an error. A *gohttp.Response result is written
// as-is; a string is sent as text/plain; nil is an empty body; anything else
// is JSON. The status is 200, 201 for POST, or the route's HTTPCode.
package kernel
