// Package token provides random secret generation and hashing helpers.
//
//   - GenerateBytes: raw CSPRNG bytes (salts, nonces)
//   - GenerateFromAlphabet: passwords drawn uniformly from a character set
//   - Hash / Fingerprint: SHA-256 digests for logging secrets without revealing them
package token
