/*
Package session implements session management and persistence orchestration.

It serialises conversation turns per session ID, combining reference-counted
local mutexes with an optional distributed lock, so that a read-modify-write
of a Session never interleaves with another turn of the same conversation.
*/
package session
