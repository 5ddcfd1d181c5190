package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for superuser passwords set from the command line
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

// hashPassword returns the argon2id hash of password in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// passwordHashFromFlags resolves --password or --password-hash into the hash
// bytes handed to the provisioner
func passwordHashFromFlags(password, passwordHashB64 string) ([]byte, error) {
	switch {
	case password != "" && passwordHashB64 != "":
		return nil, fmt.Errorf("--password and --password-hash are mutually exclusive")
	case password != "":
		phc, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		return []byte(phc), nil
	case passwordHashB64 != "":
		hash, err := base64.StdEncoding.DecodeString(passwordHashB64)
		if err != nil {
			return nil, fmt.Errorf("--password-hash must be base64: %w", err)
		}
		if len(hash) == 0 {
			return nil, fmt.Errorf("--password-hash must not be empty")
		}
		return hash, nil
	default:
		return nil, fmt.Errorf("one of --password or --password-hash is required")
	}
}
