// Package policy provides declarative domain rules applied on top of the
// approval broker – pre-approved domains that skip prompting, denied domains
// that are blocked outright and a curated high-risk list that escalates the
// default risk level of a request.
package policy
