// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the account flows over HTTP using gin.
//
// Routes:
//
//	POST /auth/register  create an account
//	POST /auth/login     verify credentials and set the session cookie
//	GET  /auth/profile   return the profile of the session's user
//	POST /auth/logout    clear the session cookie
//
// Every failure is rendered by one mapping function as
// {"statusCode": int, "error": string, "timestamp": RFC 3339}.
package web
