// Package budgetgate is the session and authorization edge of the budget
// console.
//
// A [Codec] seals the backend session token and the cached user profile into
// opaque cookie values that carry their own seven-day expiry. A [Guard] runs in
// front of every request, classifies the path against a fixed [RouteTable] and
// either lets the request through or redirects it to the login page, the
// dashboard, or the unauthorized page. Cryptographic and parsing failures never
// reach the client; they all resolve to "no session".
//
// [SessionManager] issues and clears the cookies around the backend login call,
// throttling attempts through a [Limiter] backed by memory or Redis.
package budgetgate
