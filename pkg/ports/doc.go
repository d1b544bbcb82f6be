/*
Package ports defines the driven ports (interfaces) for the Proofreader engine.

These interfaces decouple the conversation core from external implementations,
allowing it to work with various model providers, storage backends and lock
services.

# Key Interfaces

  - Generator: The external model service (prompt in, completion text out).
  - SessionStore: Responsible for persisting and loading session state.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
