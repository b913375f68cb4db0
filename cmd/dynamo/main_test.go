package main

import (
	"bytes"
	"testing"

	"github.com/aretw0/dynamo/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumDoc = `<dynWorkspace X="0" Y="0">
  <dynElements>
    <Number type="Number" guid="dddddddd-0000-0000-0000-000000000001" nickname="A" x="0" y="0">
      <Param name="value" value="20"/>
    </Number>
    <Add type="Add" guid="dddddddd-0000-0000-0000-000000000002" nickname="Sum" x="100" y="0"/>
  </dynElements>
  <dynConnectors>
    <dynConnector start-guid="dddddddd-0000-0000-0000-000000000001" start-port-index="0" end-guid="dddddddd-0000-0000-0000-000000000002" end-port-index="0" port-type="0"/>
    <dynConnector start-guid="dddddddd-0000-0000-0000-000000000001" start-port-index="0" end-guid="dddddddd-0000-0000-0000-000000000002" end-port-index="1" port-type="0"/>
  </dynConnectors>
</dynWorkspace>
`

func writeDoc(t *testing.T) string {
	t.Helper()
	return testutils.TempDocument(t, "sum.dyn", sumDoc)
}

func TestVersionCommand(t *testing.T) {
	out, err := executeDefault(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dynamo version")
}

func TestRunCommand(t *testing.T) {
	path := writeDoc(t)
	out, err := executeDefault(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "| Sum | Add | clean | 40 |")
}

func TestValidateCommand(t *testing.T) {
	out, err := executeDefault(t, "validate", writeDoc(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Document is valid")
}

func TestGraphCommand(t *testing.T) {
	out, err := executeDefault(t, "graph", "--run", writeDoc(t))
	require.NoError(t, err)
	assert.Contains(t, out, "graph LR")
	assert.Contains(t, out, "Sum <br/> 40")
	assert.Contains(t, out, "evaluated;")
}

// executeDefault runs with the default configuration and a scratch
// definitions directory. Flags keep their values across executions, so no
// test sets --config.
func executeDefault(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--definitions", t.TempDir()))
	err := rootCmd.Execute()
	return out.String(), err
}
