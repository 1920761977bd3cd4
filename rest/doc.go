// Package rest implements the HTTP execution path for the platform API.
//
// All outbound calls funnel through Client.Do, which owns the retry
// discipline: at most five attempts per logical call, linear backoff
// between attempts, mandatory waits on 429 responses, and typed terminal
// errors from the errors package for everything that cannot be retried.
// Callers never see an intermediate failure, only the final outcome.
//
// Route building uses typed identifier parameters (ServerID, ChannelID,
// UserID, MessageID) so call sites cannot transpose path segments.
// Multipart requests carry the JSON payload under the payload_json field
// with attachments as files[0], files[1], and so on.
//
// The Authorization credential is never written to logs; anywhere a token
// could surface in an error message it is replaced with [removed].
package rest
