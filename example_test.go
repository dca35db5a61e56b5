package stepwise_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/stepwise"
	"github.com/aretw0/stepwise/definitions"
	"github.com/aretw0/stepwise/pkg/adapters/memory"
)

// ExampleCompile runs the built-in mood check-in end to end.
func ExampleCompile() {
	def, err := definitions.Load("mood-checkin")
	if err != nil {
		log.Fatal(err)
	}

	sink := memory.NewSink()
	eng, err := stepwise.Compile(def, stepwise.WithSink(sink))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	flow, err := eng.CreateFlow(ctx, "example")
	if err != nil {
		log.Fatal(err)
	}

	// Mood selection advances on its own.
	flow.Select(ctx, "calm")

	flow.StageInput(3)
	flow.Next(ctx)

	flow.Toggle("rest")
	flow.Next(ctx)

	res := flow.Next(ctx) // notes are optional
	fmt.Println(res.Outcome)
	fmt.Printf("submitted %d answers\n", len(sink.Submissions()[0].Answers))

	// Output:
	// completed
	// submitted 4 answers
}

// ExampleFlow_Next shows the validation message a host displays inline.
func ExampleFlow_Next() {
	def, _ := definitions.Load("mood-checkin")
	eng, _ := stepwise.Compile(def)

	ctx := context.Background()
	flow, _ := eng.CreateFlow(ctx, "example")

	res := flow.Next(ctx)
	fmt.Println(res.Outcome, "-", res.Error.Message)

	// Output:
	// rejected - Mood is required to continue
}
