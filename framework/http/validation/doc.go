// Package validation checks flat request input against pipe-separated rule
// strings and reports failures as an *exceptions.ValidationError, which the
// default exception filter renders as a 422 with an "errors" bag.
//
//	v := validation.FromMap(body, validation.Rules{
//	    "name":  "required|min:2|max:100",
//	    "email": "required|email",
//	})
//	if err := v.Err(); err != nil {
//	    return nil, err // {"statusCode":422,"message":"The given data was invalid.","errors":{...}}
//	}
//
// Fields are checked in sorted order and each field stops at its first
// failing rule.
//
// # Rules
//
//   - required, string
//   - min:n, max:n, size:n, between:min,max (UTF-8 character counts)
//   - alpha, alpha_num, alpha_dash, regex:pattern
//   - email, url, uuid
//   - numeric, integer, gt:n, gte:n, lt:n, lte:n
//   - boolean, in:a,b,c, not_in:a,b,c
//   - confirmed, same:other, different:other
//   - nullable, sometimes (end the chain when the value is empty)
//
// Unknown rule names are ignored.
package validation
