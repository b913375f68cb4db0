/*
Package dsl provides a Go DSL for programmatically constructing Dynamo workspaces.

It allows developers to define node graphs using a type-safe, fluent builder
instead of writing workspace documents by hand. Nodes are named by short ids
that are turned into stable guids, so the same builder always produces the
same document. This is particularly useful for generated workspaces, unit
tests and custom node libraries kept in Go.

Example usage:

	b := dsl.New()
	b.Add("a").Kind("Number").Value(2).To("sum", 0).To("sum", 1)
	b.Add("sum").Kind("Add").At(200, 0)

	g, report, err := b.Build(kinds.NewDefault())

Custom nodes are built the same way and turned into a definition:

	twice := dsl.NewCustom("Twice", "Math")
	twice.Add("x").Kind("Input").Param("name", "x").To("add", 0).To("add", 1)
	twice.Add("add").Kind("Add").To("y", 0)
	twice.Add("y").Kind("Output").Param("name", "y")

	def, deps, err := twice.Definition(resolver)
*/
package dsl
