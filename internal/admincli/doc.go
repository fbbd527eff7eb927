// Package admincli implements the one-shot administrative command line:
//
//	admin [flags] register <email> [display name]
//	admin [flags] login <email>
//	admin [flags] recover <email>
//	admin [flags] reset <recovery-token>
//	admin [flags] check <email> <permission>
//	admin [flags] verify <session-token>
//
// Passwords are read from the terminal without echo. Flags are the server
// flags; the CLI talks to storage directly through the access service.
package admincli
