// Package identity implements an email one time code identity lifecycle:
// registration with code verification, code resend, password reset and
// first password setup, backed by a bun credential store.
//
// Codes are six digit decimal strings stored as bcrypt hashes next to their
// expiry. Every code has a ten minute lifetime and a sixty second cooldown
// per email and purpose.
//
// Authenticated sessions are HS256 bearer tokens issued by Auther and
// verified by the jwtware middleware. Lifecycle handlers deliver codes
// through a Notifier and emit best-effort ActivityEvents.
package identity
