package operations

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/MIPS/atlas-explorer-go/util"
)

// prompt writes a prompt to the user on stdout, reads a newline-terminated response from stdin,
// and returns the result as a string.
func prompt(message string) string {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(message + " ")
	text, _ := reader.ReadString('\n')
	return strings.TrimSpace(text)
}

// confirm asks the user a yes/no question and returns true/false if they reply with y/yes/n/no.
// if defaultYes is true, allows user to just hit enter without typing an explicit yes.
func confirm(message string, defaultYes bool) bool {
	var reply string

	yes := []string{"y", "yes"}
	no := []string{"n", "no"}

	if defaultYes {
		yes = append(yes, "")
	}

	for {
		reply = prompt(message)
		if util.StringSliceContains(yes, strings.ToLower(reply)) {
			return true
		}
		if util.StringSliceContains(no, strings.ToLower(reply)) {
			return false
		}
	}
}

// chooseOne prints a numbered menu and prompts until the user picks an
// option, by number or by exact name. A single option is returned without
// prompting.
func chooseOne(message string, options []string) string {
	if len(options) == 1 {
		return options[0]
	}

	for i, option := range options {
		fmt.Printf("  %d) %s\n", i+1, option)
	}

	for {
		reply := prompt(message)
		if idx, err := strconv.Atoi(reply); err == nil && idx >= 1 && idx <= len(options) {
			return options[idx-1]
		}
		if util.StringSliceContains(options, reply) {
			return reply
		}
	}
}
