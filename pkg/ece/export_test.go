package ece

// EncryptDeterministic exposes the encryption core with caller-supplied
// ephemeral key and salt for known-answer tests.
var EncryptDeterministic = encrypt
