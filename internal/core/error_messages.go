package core

// error_messages.go maps technical errors to messages a user can act on.
//
// Every message carries a code that can be quoted to support:
//
//	AUTH001  no access token was sent with a processing request
//	AUTH002  refresh token missing from an auth request
//	AUTH003  upstream rejected the refresh token
//	AUTH004  upstream rejected the access token (HTTP 401/403)
//	CSV001   unknown or unsupported character encoding
//	CSV002   malformed CSV (quoting, column count)
//	CSV003   upload larger than the configured limit
//	CSV004   no file in the request
//	CSV005   parsed file expired from the stash
//	MAP001   a column role is not mapped
//	MAP002   request body without rows or mapping
//	MAP003   preset name already taken
//	MAP004   preset id unknown
//	MAP005   preset saved without a name
//	VAL001   every row failed validation
//	API001   upstream returned a 5xx
//	API002   upstream returned another HTTP error
//	API003   upstream unreachable
//	API004   upstream answered with GraphQL errors
//	PROC001  all processing slots busy
//	PROC002  run or request timed out
//	PROC003  request cancelled
//	RATE001  inbound rate limit hit
//	REQ001   request body is not valid JSON
//	CFG001   optional feature disabled on this server
//	ERR000   anything else; the technical error is in the logs
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns sit above general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Credentials
	{"no access token provided", UserMessage{
		Message: "No access token provided",
		Action:  "Sign in with your ShipHero refresh token first",
		Code:    "AUTH001",
	}},
	{"refresh token is required", UserMessage{
		Message: "Refresh token is required",
		Action:  "Paste a ShipHero refresh token and try again",
		Code:    "AUTH002",
	}},
	{"shiphero auth", UserMessage{
		Message: "ShipHero rejected the refresh token",
		Action:  "Generate a new refresh token in ShipHero and try again",
		Code:    "AUTH003",
	}},
	{"http error: 401", UserMessage{
		Message: "ShipHero rejected the access token",
		Action:  "Refresh your access token and try again",
		Code:    "AUTH004",
	}},
	{"http error: 403", UserMessage{
		Message: "ShipHero rejected the access token",
		Action:  "Refresh your access token and try again",
		Code:    "AUTH004",
	}},

	// Files
	{"encoding error", UserMessage{
		Message: "File encoding is not supported",
		Action:  "Save the file as UTF-8 or pick the matching encoding",
		Code:    "CSV001",
	}},
	{"invalid csv", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with consistent columns",
		Code:    "CSV002",
	}},
	{"file too large", UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "CSV003",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "CSV004",
	}},
	{"parsed file not found", UserMessage{
		Message: "The uploaded file has expired",
		Action:  "Upload the file again",
		Code:    "CSV005",
	}},

	// Mapping and validation
	{"incomplete field mapping", UserMessage{
		Message: "Not every column is mapped",
		Action:  "Choose the SKU, Case Barcode and Case Quantity columns",
		Code:    "MAP001",
	}},
	{"missing required data", UserMessage{
		Message: "Missing required data or mapping",
		Action:  "Send the parsed rows together with a column mapping",
		Code:    "MAP002",
	}},
	{"mapping preset already exists", UserMessage{
		Message: "A saved mapping with that name already exists",
		Action:  "Pick a different name",
		Code:    "MAP003",
	}},
	{"mapping preset not found", UserMessage{
		Message: "The saved mapping no longer exists",
		Action:  "Reload the page and choose another mapping",
		Code:    "MAP004",
	}},
	{"preset name is required", UserMessage{
		Message: "The saved mapping needs a name",
		Action:  "Enter a name and save again",
		Code:    "MAP005",
	}},
	{"no valid products", UserMessage{
		Message: "No valid products to process",
		Action:  "Check that every row has a SKU, a barcode and a positive quantity",
		Code:    "VAL001",
	}},

	// Upstream
	{"http error: 5", UserMessage{
		Message: "ShipHero is having trouble right now",
		Action:  "Please try again in a few minutes",
		Code:    "API001",
	}},
	{"http error:", UserMessage{
		Message: "ShipHero refused the request",
		Action:  "Check the error details and try again",
		Code:    "API002",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to reach ShipHero",
		Action:  "Check your network connection and try again",
		Code:    "API003",
	}},
	{"no such host", UserMessage{
		Message: "Unable to reach ShipHero",
		Action:  "Check your network connection and try again",
		Code:    "API003",
	}},
	{"graphql", UserMessage{
		Message: "ShipHero reported an error",
		Action:  "Check the error details and try again",
		Code:    "API004",
	}},

	// Processing
	{"too many concurrent processing runs", UserMessage{
		Message: "The system is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "PROC001",
	}},
	{"deadline exceeded", UserMessage{
		Message: "The request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "PROC002",
	}},
	{"timeout", UserMessage{
		Message: "The request timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "PROC002",
	}},
	{"context canceled", UserMessage{
		Message: "The request was cancelled",
		Action:  "Please try again",
		Code:    "PROC003",
	}},

	{"invalid request body", UserMessage{
		Message: "The request body is not valid JSON",
		Action:  "Check the request format and try again",
		Code:    "REQ001",
	}},
	{"is not configured", UserMessage{
		Message: "This feature is not enabled on this server",
		Action:  "Ask an administrator to configure a database",
		Code:    "CFG001",
	}},

	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000; nil maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
