// Package strategy provides the stock traversal strategies and the means
// to assemble a strategy set from configuration.
//
// Built-in strategies:
//
//   - IdentityRemoval (optimization) drops unlabeled identity steps.
//   - StandardVerification (verification) rejects plans the engine cannot
//     run: distributed steps without a computer, reducing barriers inside
//     loop bodies and misplaced profile steps.
//   - ComputerVerification (verification) rejects plans a distributed
//     computer cannot run.
//
// Strategy sets can be named in YAML profiles that include one another:
//
//	name: production
//	includes:
//	  - standard
//	strategies:
//	  - computer_verification
//
// Profiles resolve against a Registry of strategy factories.
package strategy
