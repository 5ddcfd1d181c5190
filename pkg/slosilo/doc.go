// Package slosilo holds the cryptographic primitives used when a tenant is provisioned.
//
// # Signing keys
//
// Each tenant owns one or more RSA signing key sets. Only the public half ever
// leaves the service:
//
//	key, err := slosilo.GenerateKey()
//	if err != nil {
//	    return err
//	}
//	publicPEM := key.PublicPem()
//
// # Data key encryption
//
// Private keys are encrypted at rest with the deployment's data key:
//
//	cipher, err := slosilo.NewSymmetric(dataKey)
//	ciphertext, err := cipher.Encrypt([]byte(rowID), der)
//
// # Salts
//
// SaltGenerator produces the per-tenant fixed password salt:
//
//	salts, _ := slosilo.NewSaltGenerator(slosilo.DefaultSaltLength)
//	salt, err := salts.CreateRandomSalt()
package slosilo
