// Package adaptive provides authenticated encryption for secrets at rest.
//
// The cipher is chosen by platform: AES-256-GCM where the Go runtime uses
// hardware AES (amd64, arm64), ChaCha20-Poly1305 elsewhere. SealString and
// OpenString wrap a cipher with an argon2id passphrase KDF and a printable
// envelope, which is how pvectl stores profile passwords.
package adaptive
