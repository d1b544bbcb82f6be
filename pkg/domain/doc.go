/*
Package domain contains the core domain models of the Proofreader conversation.

It defines the entities the Conversation Controller operates on: role-tagged
Utterances, the append-only Transcript and the Session that threads the
two-valued Mode through each turn. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Utterance: One immutable role-tagged message (user or assistant).
  - Transcript: Ordered, append-only history of Utterances.
  - Session: Transcript + Mode + the text awaiting a correction answer.
  - SessionDiff: A partial update between two Session snapshots, for streaming clients.
*/
package domain
