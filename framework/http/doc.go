// Package http provides the request accessors and the response artifact used
// by the dispatch pipeline.
//
// # Request
//
// Request wraps *http.Request. The body is parsed once, and only for POST,
// PUT and PATCH requests carrying JSON or form data.
//
//	req := gohttp.NewRequest(r)
//
//	body, err := req.Body()       // map[string]any for objects and forms
//	var payload CreateCat
//	err = req.Bind(&payload)      // JSON round trip into a struct
//
//	id    := req.Param("id")      // path parameter bound by the matcher
//	page  := req.Query("page", "1")
//	query := req.QueryAll()       // map[string]string (first values)
//	hdrs  := req.Headers()        // lower-cased keys
//	token := req.BearerToken()
//
// # Response
//
// Response is what a request produces. Handlers may return one directly to
// control status and headers; it is written unchanged.
//
//	gohttp.JSON(200, data)                 // raw JSON with status
//	gohttp.Success(data)                   // 200 {"data": ...}
//	gohttp.Created(data)                   // 201 {"data": ...}
//	gohttp.NoContent()                     // 204
//	gohttp.Text(200, "pong")               // text/plain
//	gohttp.Error(400, "bad input")         // {"statusCode":400,"message":"bad input","error":"Bad Request"}
//	gohttp.Forbidden()                     // 403 "Forbidden resource"
//	gohttp.ValidationError(msg, fields)    // 422 {..., "errors": {"field": ["msg"]}}
//	gohttp.Redirect(302, "/dashboard")
package http
