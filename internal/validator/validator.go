package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/dynamo/internal/runtime"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/aretw0/dynamo/pkg/kinds"
)

// Report lists the problems found in a document. Errors make the document
// unusable as saved; warnings are repaired or tolerated on load.
type Report struct {
	Errors   []string
	Warnings []string
}

// Err returns nil when the report has no errors.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(r.Errors, "\n- "))
}

// ValidateDocument loads doc into a scratch graph through resolver and checks
// for unknown kinds, broken connectors, cycles and dangling inputs.
func ValidateDocument(doc *format.Document, resolver domain.Resolver) (*Report, error) {
	kind, name := domain.GraphHome, ""
	if doc.IsCustom() {
		kind, name = domain.GraphCustom, doc.Name
	}
	g := domain.NewGraph(kind, name, resolver)
	loaded, err := format.Materialize(doc, g)
	if err != nil {
		return nil, err
	}

	r := &Report{}
	for _, b := range loaded.BadNodes {
		r.Errors = append(r.Errors, fmt.Sprintf("node %s: %v", b.GUID, b.Err))
	}
	for _, d := range loaded.Dropped {
		r.Errors = append(r.Errors, fmt.Sprintf("connector %s[%d] -> %s[%d]: %s",
			d.Record.Start, d.Record.StartIndex, d.Record.End, d.Record.EndIndex, d.Reason))
	}
	r.Warnings = append(r.Warnings, loaded.Warnings...)

	if _, err := runtime.Order(g); err != nil {
		var cyc *domain.CyclicGraphError
		if !errors.As(err, &cyc) {
			return nil, err
		}
		r.Errors = append(r.Errors, cyc.Error())
	}

	outputs := 0
	for _, n := range g.Nodes() {
		if n.Kind == kinds.Output {
			outputs++
		}
		suffix := ""
		if pb, ok := n.Behavior.(domain.Partial); ok && pb.AllowPartial() {
			suffix = "; the node yields a function"
		}
		for _, p := range n.Inputs {
			if !p.IsConnected() && p.Default == nil {
				r.Warnings = append(r.Warnings, fmt.Sprintf("node %s (%s): input %q is not connected%s", n.ID, n.NickName, p.Name, suffix))
			}
		}
	}
	if doc.IsCustom() && outputs == 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("custom node %q has no Output node", doc.Name))
	}
	return r, nil
}
