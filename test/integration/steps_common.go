package integration

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	provisioned  map[string]model.SignatureSet
	lastTenant   string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:          tc,
		provisioned: make(map[string]model.SignatureSet),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an identity server is running$`, s.anIdentityServerIsRunning)

	// Requests
	sc.Step(`^I provision tenant "([^"]*)" with password "([^"]*)"$`, s.iProvisionTenant)
	sc.Step(`^I provision tenant "([^"]*)" with an empty body$`, s.iProvisionTenantWithEmptyBody)
	sc.Step(`^I fetch the latest signature of tenant "([^"]*)"$`, s.iFetchLatestSignature)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response should be a signature set$`, s.theResponseShouldBeASignatureSet)
	sc.Step(`^the signature should match the provisioned one$`, s.theSignatureShouldMatch)

	// Database steps
	sc.Step(`^tenant "([^"]*)" should have (\d+) signing key rows?$`, s.tenantShouldHaveSigningKeyRows)
	sc.Step(`^tenant "([^"]*)" should have (\d+) permittable group rows?$`, s.tenantShouldHaveGroupRows)
	sc.Step(`^tenant "([^"]*)" should have (\d+) mirrored group rows?$`, s.tenantShouldHaveMirroredRows)
	sc.Step(`^user "([^"]*)" of tenant "([^"]*)" should have role "([^"]*)"$`, s.userShouldHaveRole)
	sc.Step(`^user "([^"]*)" of tenant "([^"]*)" should have password hash of "([^"]*)"$`, s.userShouldHavePasswordHash)

	registerSignatureSteps(sc, s)
}

func (s *StepsContext) anIdentityServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) doRequest(method, path string, body []byte) error {
	req, err := http.NewRequest(method, s.tc.ServerURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) iProvisionTenant(tenant, password string) error {
	body, err := json.Marshal(map[string]string{
		"password_hash": base64.StdEncoding.EncodeToString([]byte(password)),
	})
	if err != nil {
		return err
	}
	if err := s.doRequest(http.MethodPut, "/tenants/"+url.PathEscape(tenant)+"/provision", body); err != nil {
		return err
	}

	s.lastTenant = tenant
	if s.response.StatusCode == http.StatusOK {
		var sigs model.SignatureSet
		if err := json.Unmarshal(s.responseBody, &sigs); err != nil {
			return fmt.Errorf("failed to decode signature set: %w", err)
		}
		s.provisioned[tenant] = sigs
	}
	return nil
}

func (s *StepsContext) iProvisionTenantWithEmptyBody(tenant string) error {
	s.lastTenant = tenant
	return s.doRequest(http.MethodPut, "/tenants/"+url.PathEscape(tenant)+"/provision", []byte("{}"))
}

func (s *StepsContext) iFetchLatestSignature(tenant string) error {
	s.lastTenant = tenant
	return s.doRequest(http.MethodGet, "/tenants/"+url.PathEscape(tenant)+"/signatures/latest", nil)
}

func (s *StepsContext) theResponseStatusShouldBe(status int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseShouldBeASignatureSet() error {
	var sigs model.SignatureSet
	if err := json.Unmarshal(s.responseBody, &sigs); err != nil {
		return fmt.Errorf("failed to decode signature set: %w", err)
	}
	if sigs.Timestamp == "" || sigs.PublicKeyPEM == "" || sigs.PublicKeyMod == "" || sigs.PublicKeyExp == 0 {
		return fmt.Errorf("incomplete signature set: %+v", sigs)
	}
	return nil
}

func (s *StepsContext) theSignatureShouldMatch() error {
	expected, ok := s.provisioned[s.lastTenant]
	if !ok {
		return fmt.Errorf("tenant %q was never provisioned", s.lastTenant)
	}

	var sigs model.SignatureSet
	if err := json.Unmarshal(s.responseBody, &sigs); err != nil {
		return fmt.Errorf("failed to decode signature set: %w", err)
	}
	if sigs != expected {
		return fmt.Errorf("expected signature set %+v, got %+v", expected, sigs)
	}
	return nil
}

func (s *StepsContext) tenantShouldHaveSigningKeyRows(tenant string, expected int) error {
	return s.expectCount(false, "SELECT count(*) FROM signing_keys WHERE tenant_id = $1", tenant, expected)
}

func (s *StepsContext) tenantShouldHaveGroupRows(tenant string, expected int) error {
	return s.expectCount(false, "SELECT count(*) FROM permittable_groups WHERE tenant_id = $1", tenant, expected)
}

func (s *StepsContext) tenantShouldHaveMirroredRows(tenant string, expected int) error {
	return s.expectCount(true, "SELECT count(*) FROM permittable_group_mirror WHERE tenant_id = $1", tenant, expected)
}

func (s *StepsContext) expectCount(mirror bool, query, tenant string, expected int) error {
	db := s.tc.RawDB
	if mirror {
		db = s.tc.MirrorDB
	}

	var n int
	if err := db.QueryRow(query, tenant).Scan(&n); err != nil {
		return fmt.Errorf("failed to count rows: %w", err)
	}
	if n != expected {
		return fmt.Errorf("expected %d rows for tenant %q, got %d", expected, tenant, n)
	}
	return nil
}

func (s *StepsContext) userShouldHaveRole(user, tenant, role string) error {
	var actual string
	err := s.tc.RawDB.QueryRow(
		"SELECT role FROM users WHERE tenant_id = $1 AND identifier = $2", tenant, user,
	).Scan(&actual)
	if err != nil {
		return fmt.Errorf("failed to load user %q: %w", user, err)
	}
	if actual != role {
		return fmt.Errorf("expected role %q, got %q", role, actual)
	}
	return nil
}

func (s *StepsContext) userShouldHavePasswordHash(user, tenant, password string) error {
	var hash []byte
	err := s.tc.RawDB.QueryRow(
		"SELECT password_hash FROM users WHERE tenant_id = $1 AND identifier = $2", tenant, user,
	).Scan(&hash)
	if err != nil {
		return fmt.Errorf("failed to load user %q: %w", user, err)
	}
	if !bytes.Equal(hash, []byte(password)) {
		return fmt.Errorf("password hash of %q was not reset", user)
	}
	return nil
}
