/*
Package dynamo is a visual dataflow engine: programs are graphs of nodes
whose output ports feed the input ports of other nodes, and a run evaluates
every dirty node in dependency order.

# Concept

A Workbench owns one Home workspace plus any number of custom node
definitions. A custom node is a graph with Input and Output parameter nodes
that can itself be placed as a node in other graphs; definitions may load
in any order and resolve once their dependencies arrive.

Workspaces are stored as XML documents (.dyn for Home, .dyf for custom
nodes) through a ports.DocumentStore: the local filesystem, memory or Redis.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/dynamo"
		"github.com/aretw0/dynamo/pkg/adapters/file"
	)

	func main() {
		ctx := context.Background()
		wb := dynamo.New(dynamo.WithDefinitionStore(file.New("./definitions")))

		if _, err := wb.LoadDefinitions(ctx); err != nil {
			log.Fatal(err)
		}
		if _, err := wb.Open(ctx, "./sum.dyn"); err != nil {
			log.Fatal(err)
		}

		res, err := wb.RunExpression(ctx, false)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("evaluated", len(res.Evaluated), "nodes; errors:", res.Err())
	}

Mutations and runs happen on a single goroutine. Servers and watchers
submit work to it through commands.Owner.
*/
package dynamo
