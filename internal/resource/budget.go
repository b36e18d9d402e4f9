package resource

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// BudgetCap is the maximum number of characters a read, glob or grep result
// may occupy. Results over the cap fail with a narrowing error; nothing is
// ever silently truncated, because silent pruning would hide information
// non-deterministically.
const BudgetCap = 10000

// MaxMatches bounds glob/grep match counts before the character budget is
// even consulted.
const MaxMatches = 100

// CheckBudget returns the result unchanged when it fits the cap, and a
// budget error stating cap and actual size otherwise.
func CheckBudget(result string) (string, error) {
	if len(result) <= BudgetCap {
		return result, nil
	}
	return "", &Error{
		Kind: KindBudget,
		Msg: fmt.Sprintf(
			"result is %s characters, over the %s cap; narrow your query (read a sub-package, a single module, or one symbol)",
			humanize.Comma(int64(len(result))), humanize.Comma(int64(BudgetCap))),
	}
}
