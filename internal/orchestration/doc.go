// Package orchestration dispatches Fibonacci computations to the execution
// mode their strategy allows and runs multi-strategy comparisons. Results
// always come back through a scheduler handle; presentation stays behind
// the ResultPresenter interface.
package orchestration
