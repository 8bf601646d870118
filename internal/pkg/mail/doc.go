// Package mail defines the contracts for sending email messages.
//
// Use cases work with the Mail interface and the Message payload. The concrete
// delivery mechanism is either an SMTP relay (XOAUTH2 or password auth) or the
// Gmail HTTP API. Queue offloads sends to background workers.
package mail
