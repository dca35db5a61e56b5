/*
Package domain contains the core domain models of the Stepwise engine.

It defines the fundamental entities of a stepped flow, such as Steps, Answers
and the live Flow State. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Step: An immutable descriptor of one screen-equivalent unit (kind, prompt, options, rules).
  - Answer: The tagged value recorded for one step (choice, choices, number, text, mood or sentinel).
  - AnswerStore: The mapping from step ID to committed Answer.
  - FlowState: The runtime cursor of a flow instance (position, direction, status, answers).
  - Notice: A host-visible message raised by a side-effect observer (e.g. crisis resources).
*/
package domain
