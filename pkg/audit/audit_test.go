package audit

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)

	logger.Log(ProvisionEvent{
		TenantID:     "acme",
		RunID:        "run-1",
		KeyTimestamp: "20240101T000000.000000000Z",
		Success:      true,
	})

	output := buf.String()

	// <4*8+5>1 ...
	if !strings.HasPrefix(output, "<37>1 ") {
		t.Errorf("Expected PRI <37> and version 1, got %q", output)
	}
	if !strings.Contains(output, " identity ") {
		t.Error("Expected app name 'identity' in output")
	}
	if !strings.Contains(output, " provision ") {
		t.Error("Expected message ID 'provision' in output")
	}
	if !strings.Contains(output, `[key@32473 timestamp="20240101T000000.000000000Z"]`) {
		t.Errorf("Expected key structured data in output, got %q", output)
	}
	if !strings.HasSuffix(output, "tenant acme provisioned with signing key 20240101T000000.000000000Z\n") {
		t.Errorf("Expected success message at end of line, got %q", output)
	}
}

func TestProvisionEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   ProvisionEvent
		wantMsg string
		wantSev Severity
	}{
		{
			name:    "successful bootstrap",
			event:   ProvisionEvent{TenantID: "acme", KeyTimestamp: "20240101T000000.000000000Z", Success: true},
			wantMsg: "tenant acme provisioned",
			wantSev: SeverityNotice,
		},
		{
			name:    "failed bootstrap",
			event:   ProvisionEvent{TenantID: "acme", Success: false, ErrorMessage: "provisioning failed: mirror write failed"},
			wantMsg: "tenant acme failed to provision: provisioning failed: mirror write failed",
			wantSev: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.event.Message(), tt.wantMsg) {
				t.Errorf("Message() = %q, want to contain %q", tt.event.Message(), tt.wantMsg)
			}
			if tt.event.Severity() != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", tt.event.Severity(), tt.wantSev)
			}
			if tt.event.MessageID() != "provision" {
				t.Errorf("MessageID() = %q, want provision", tt.event.MessageID())
			}
		})
	}
}

func TestProvisionEventOmitsKeyOnFailure(t *testing.T) {
	sd := ProvisionEvent{TenantID: "acme", Success: false}.StructuredData()

	if _, ok := sd[SDIDKey]; ok {
		t.Error("failed provision should not carry key structured data")
	}
	if sd[SDIDAction]["result"] != "failure" {
		t.Errorf("action.result = %q, want failure", sd[SDIDAction]["result"])
	}
}

func TestPasswordRotationEvent(t *testing.T) {
	event := PasswordRotationEvent{TenantID: "acme", UserID: "antony", RunID: "run-2", Success: true}

	if event.Message() != "password of antony in tenant acme was reset" {
		t.Errorf("Message() = %q", event.Message())
	}
	if event.Facility() != FacilityAuthPriv {
		t.Errorf("Facility() = %d, want %d", event.Facility(), FacilityAuthPriv)
	}

	sd := event.StructuredData()
	if sd[SDIDSubject]["user"] != "antony" {
		t.Errorf("subject.user = %q, want antony", sd[SDIDSubject]["user"])
	}
	if sd[SDIDAction]["run"] != "run-2" {
		t.Errorf("action.run = %q, want run-2", sd[SDIDAction]["run"])
	}
}

func TestFormatStructuredDataIsSorted(t *testing.T) {
	got := formatStructuredData(map[string]map[string]string{
		"b@1": {"z": "1", "a": "2"},
		"a@1": {"k": "v"},
	})

	want := `[a@1 k="v"][b@1 a="2" z="1"]`
	if got != want {
		t.Errorf("formatStructuredData() = %q, want %q", got, want)
	}
}

func TestFuncAuditor(t *testing.T) {
	var got []Event
	var auditor Auditor = Func(func(e Event) { got = append(got, e) })

	auditor.Log(ProvisionEvent{TenantID: "acme"})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
}

func TestAuditToggle(t *testing.T) {
	originalEnabled := auditEnabled
	defer func() {
		auditEnabled = originalEnabled
	}()

	SetEnabled(false)
	if IsEnabled() {
		t.Error("Expected audit to be disabled")
	}

	SetEnabled(true)
	if !IsEnabled() {
		t.Error("Expected audit to be enabled")
	}
}

func TestEscapeSDValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple", `"simple"`},
		{`with"quote`, `"with\"quote"`},
		{`with\backslash`, `"with\\backslash"`},
		{`with]bracket`, `"with\]bracket"`},
		{`all"special\chars]`, `"all\"special\\chars\]"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := escapeSDValue(tt.input)
			if got != tt.want {
				t.Errorf("escapeSDValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
