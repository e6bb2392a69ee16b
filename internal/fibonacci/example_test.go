package fibonacci

import (
	"context"
	"fmt"

	"github.com/zed/txfib/internal/memo"
)

// ExampleNewStepper drives a linear computation in slices of four units, the
// way the cooperative scheduler does.
func ExampleNewStepper() {
	st, err := NewStepper(Linear, 10, nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	slices := 0
	for !st.Done() {
		if _, err := st.Step(4); err != nil {
			fmt.Println(err)
			return
		}
		slices++
	}
	fmt.Println(st.Result(), st.Steps(), slices)
	// Output:
	// 55 10 3
}

// ExampleCompute runs every strategy to completion on the calling goroutine.
func ExampleCompute() {
	cache := memo.New(0)
	for _, s := range Strategies() {
		v, err := Compute(context.Background(), s, 20, cache)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("%s %v\n", s, v)
	}
	// Output:
	// linear 6765
	// logarithmic 6765
	// closedFormExact 6765
	// closedFormApprox 6765
	// memoizedRecursive 6765
	// unmemoizedRecursive 6765
}

// ExampleParseStrategy resolves the route names of the HTTP resource.
func ExampleParseStrategy() {
	for _, name := range []string{"iterfib", "binetfib", "Logarithmic"} {
		s, _ := ParseStrategy(name)
		fmt.Println(s, s.Profile().DefaultMode)
	}
	// Output:
	// linear cooperative
	// closedFormExact process
	// logarithmic cooperative
}
