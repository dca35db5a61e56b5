/*
Package stepwise is a stepped flow engine for mood check-ins and assessment wizards.

A flow is an ordered registry of typed steps (mood selection, number input,
multiple choice, rating scales, media capture, summaries). The engine owns
the answers, validates every candidate before it is committed, skips steps
whose inclusion predicate is false and hands the final answer set to a sink.
Observers react to committed answers and raise notices, such as crisis
resources when a free-text answer contains a crisis phrase.

# Concept

The core (internal/runtime) is stateless: every operation takes a
domain.FlowState and returns a new one. Flow wraps that core into a stateful
controller for hosts that keep one flow in memory, while adapters that keep
state elsewhere (HTTP, MCP) drive the Engine through ports.FlowEngine.

# Usage

	def, err := definitions.Load("mood-checkin")
	if err != nil {
		log.Fatal(err)
	}

	eng, err := stepwise.Compile(def, stepwise.WithSink(sink))
	if err != nil {
		log.Fatal(err)
	}

	flow, err := eng.CreateFlow(ctx, "")
	if err != nil {
		log.Fatal(err)
	}

	flow.Select(ctx, "calm")     // auto-advances
	flow.StageInput(7)           // validates without committing
	res := flow.Next(ctx)        // commits and moves forward
	if res.Error != nil {
		fmt.Println(res.Error.Message)
	}

Flows can also be opened from disk with Open: a YAML file is read as a
definition, a directory as a catalogue of Markdown steps.

# Persistence

WithStore mirrors every transition into a ports.StateStore so flows can be
resumed with Engine.Resume. Hosts that persist on their own can save
Flow.Record and rebuild it with Engine.Restore.
*/
package stepwise
