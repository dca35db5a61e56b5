/*
Package dsl provides a Go DSL for programmatically constructing flow definitions.

It lets hosts declare a flow with a fluent builder instead of a YAML file,
which is handy for flows generated at runtime and for tests.

Example usage:

	b := dsl.New("evening").Title("Evening check-in")

	b.Add("mood", domain.KindMoodSelection).
		Prompt("How was your day?").
		Option("good", "Good").
		Option("rough", "Rough")

	b.Add("why", domain.KindTextInput).
		Prompt("What made it rough?").
		When(`answers.mood == "rough"`)

	b.LowMood("rough")

	def, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	eng, err := stepwise.Compile(def)
*/
package dsl
