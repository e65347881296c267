package tui

import "strings"

// commandNames are completed by the prompt.
var commandNames = []string{"push", "ipm", "screen", "notifications", "help", "quit"}

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// Fields splits the arguments on whitespace.
func (c Command) Fields() []string {
	return strings.Fields(c.Args)
}

// sampleIpm builds push data for a demo IPM from ":ipm <id> [ttl] [heading...]".
func sampleIpm(args []string) map[string]string {
	data := map[string]string{
		"type":       "ipm",
		"ttl":        "60",
		"heading":    "Hello from Connect",
		"message":    "This message was delivered from the host simulator.",
		"buttonText": "Open",
	}
	if len(args) > 0 {
		data["_oid"] = args[0]
		data["action"] = "connect://ipm/" + args[0]
	}
	if len(args) > 1 {
		data["ttl"] = args[1]
	}
	if len(args) > 2 {
		data["heading"] = strings.Join(args[2:], " ")
	}
	return data
}
