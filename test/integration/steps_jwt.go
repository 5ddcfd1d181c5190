package integration

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/cucumber/godog"
	"github.com/golang-jwt/jwt/v5"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
)

func registerSignatureSteps(sc *godog.ScenarioContext, s *StepsContext) {
	sc.Step(`^a token signed by tenant "([^"]*)" should verify against the signature$`, s.aTokenSignedByTenantShouldVerify)
}

// aTokenSignedByTenantShouldVerify signs a token with the stored private key
// and verifies it with both public encodings of the last response.
func (s *StepsContext) aTokenSignedByTenantShouldVerify(tenant string) error {
	var sigs model.SignatureSet
	if err := json.Unmarshal(s.responseBody, &sigs); err != nil {
		return fmt.Errorf("failed to decode signature set: %w", err)
	}

	stores, err := s.tc.NewStores()
	if err != nil {
		return err
	}
	latest, err := stores.SigningKeys.GetLatest(context.Background(), tenant)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": tenant,
		"sub": "antony",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = sigs.Timestamp
	signed, err := token.SignedString(latest.Key.PrivateKey())
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	pemKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(sigs.PublicKeyPEM))
	if err != nil {
		return fmt.Errorf("failed to parse public key PEM: %w", err)
	}
	jwkKey, err := publicKeyFromModulus(sigs.PublicKeyMod, sigs.PublicKeyExp)
	if err != nil {
		return err
	}

	for name, key := range map[string]*rsa.PublicKey{"pem": pemKey, "modulus": jwkKey} {
		parsed, err := jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
		if err != nil {
			return fmt.Errorf("token did not verify with the %s key: %w", name, err)
		}
		if !parsed.Valid {
			return fmt.Errorf("token is not valid with the %s key", name)
		}
	}
	return nil
}

func publicKeyFromModulus(mod string, exp int) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(mod)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil
}
