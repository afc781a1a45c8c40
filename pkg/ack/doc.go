// Package ack tracks policy acknowledgments: a subject's sign-off on a
// specific policy version.
//
// Recording is idempotent per (tenant, policy, version, subject); the first
// write wins and duplicates return the stored row. Only a SHA-256 reference
// of the signature material is kept, never the material itself.
package ack
