package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/dynamo/pkg/format"
	"github.com/aretw0/dynamo/pkg/kinds"
)

const (
	aID = "aaaaaaaa-0000-0000-0000-000000000001"
	bID = "aaaaaaaa-0000-0000-0000-000000000002"
	cID = "aaaaaaaa-0000-0000-0000-000000000003"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		errors   []string
		warnings []string
	}{
		{
			name: "Valid",
			doc: `<dynWorkspace X="0" Y="0">
  <dynElements>
    <Number type="Number" guid="` + aID + `" nickname="Number" x="0" y="0"/>
    <Add type="Add" guid="` + bID + `" nickname="Add" x="0" y="0"/>
  </dynElements>
  <dynConnectors>
    <dynConnector start-guid="` + aID + `" start-port-index="0" end-guid="` + bID + `" end-port-index="0" port-type="0"/>
    <dynConnector start-guid="` + aID + `" start-port-index="0" end-guid="` + bID + `" end-port-index="1" port-type="0"/>
  </dynConnectors>
</dynWorkspace>`,
		},
		{
			name: "Unknown Kind",
			doc: `<dynWorkspace>
  <dynElements>
    <Ghost type="Ghost" guid="` + aID + `" nickname="Ghost" x="0" y="0"/>
  </dynElements>
</dynWorkspace>`,
			errors: []string{"node " + aID},
		},
		{
			name: "Broken Connector",
			doc: `<dynWorkspace>
  <dynElements>
    <Number type="Number" guid="` + aID + `" nickname="Number" x="0" y="0"/>
  </dynElements>
  <dynConnectors>
    <dynConnector start-guid="` + aID + `" start-port-index="0" end-guid="` + cID + `" end-port-index="0" port-type="0"/>
  </dynConnectors>
</dynWorkspace>`,
			errors: []string{"unknown end node"},
		},
		{
			name: "Cycle",
			doc: `<dynWorkspace>
  <dynElements>
    <Identity type="Identity" guid="` + aID + `" nickname="Identity" x="0" y="0"/>
    <Identity type="Identity" guid="` + bID + `" nickname="Identity" x="0" y="0"/>
  </dynElements>
  <dynConnectors>
    <dynConnector start-guid="` + aID + `" start-port-index="0" end-guid="` + bID + `" end-port-index="0" port-type="0"/>
    <dynConnector start-guid="` + bID + `" start-port-index="0" end-guid="` + aID + `" end-port-index="0" port-type="0"/>
  </dynConnectors>
</dynWorkspace>`,
			errors: []string{"cyclic graph"},
		},
		{
			name: "Dangling Input",
			doc: `<dynWorkspace>
  <dynElements>
    <Add type="Add" guid="` + aID + `" nickname="Add" x="0" y="0"/>
  </dynElements>
</dynWorkspace>`,
			warnings: []string{`input "x" is not connected; the node yields a function`, `input "y" is not connected`},
		},
		{
			name: "Custom Node Without Output",
			doc: `<dynWorkspace Name="Empty" Category="Test">
  <dynElements/>
</dynWorkspace>`,
			warnings: []string{`custom node "Empty" has no Output node`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := format.Unmarshal([]byte(tt.doc))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			report, err := ValidateDocument(doc, kinds.NewDefault())
			if err != nil {
				t.Fatalf("ValidateDocument() error = %v", err)
			}
			if len(tt.errors) == 0 && report.Err() != nil {
				t.Errorf("expected no errors, got: %v", report.Err())
			}
			assertContains(t, "errors", report.Errors, tt.errors)
			assertContains(t, "warnings", report.Warnings, tt.warnings)
		})
	}
}

func assertContains(t *testing.T, what string, got, want []string) {
	t.Helper()
	joined := strings.Join(got, "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("%s = %q, want substring %q", what, got, w)
		}
	}
}
