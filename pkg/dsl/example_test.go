package dsl_test

import (
	"context"
	"fmt"

	"github.com/aretw0/dynamo/internal/runtime"
	"github.com/aretw0/dynamo/pkg/dsl"
	"github.com/aretw0/dynamo/pkg/kinds"
)

func ExampleBuilder() {
	b := dsl.New()
	b.Add("width").Kind(kinds.Number).Value(3).To("area", 0)
	b.Add("height").Kind(kinds.Number).Value(4).To("area", 1)
	b.Add("area").Kind(kinds.Multiply)

	g, _, err := b.Build(kinds.NewDefault())
	if err != nil {
		panic(err)
	}
	if _, err := runtime.NewEngine().Run(context.Background(), g, runtime.RunOptions{}); err != nil {
		panic(err)
	}
	area, _ := g.Node(b.NodeID("area"))
	v, _ := area.Output(0)
	fmt.Println(v)
	// Output: 12
}
