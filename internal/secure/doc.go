// Package secure wraps memguard to keep the resolved encryption key
// encrypted at rest in process memory while apply and update run.
package secure
