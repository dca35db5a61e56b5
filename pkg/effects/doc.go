// Package effects provides the side-effect observers shipped with stepwise.
//
// Observers react to committed answers by raising or clearing notices. They
// never influence navigation: the flow controller runs them after a commit and
// before resolving the next step, and ignores anything they do besides
// returning side effects.
package effects
