// Package flagx contains helpers for layered command-line parsing: each
// config stage filters os.Args down to the flags it owns before handing them
// to a flag.FlagSet, so stages never trip over each other's flags or over the
// positional arguments.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args containing only the allowed flags
// (and their values). Flags listed in boolFlags take no value, so the
// argument following them is never consumed as a value.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -f /Reports
//  2. Flag and value combined with '=':      --folder=/Reports
//
// Parameters:
//
//	args       — the command-line arguments (usually os.Args[1:])
//	valueFlags — allowed flags that take a value (e.g. []string{"-f", "-n"})
//	boolFlags  — allowed flags that take no value (e.g. []string{"-v", "-q"})
func FilterArgs(args []string, valueFlags, boolFlags []string) []string {
	valued := toSet(valueFlags)
	boolean := toSet(boolFlags)

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--flag=value" or "-f=value" form
		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := canonical(strings.SplitN(arg, "=", 2)[0])
			if _, ok := valued[name]; ok {
				filtered = append(filtered, arg)
			}
			if _, ok := boolean[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := boolean[canonical(arg)]; ok {
			filtered = append(filtered, arg)
			continue
		}

		if _, ok := valued[canonical(arg)]; ok {
			filtered = append(filtered, arg)
			// The next argument is this flag's value, even if it starts
			// with '-' (a filename may).
			if i+1 < len(args) {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// Positionals returns the arguments that are neither flags nor values
// consumed by flags. valueFlags must list every flag of the program that
// takes a value, otherwise a flag value would be mistaken for a positional.
func Positionals(args []string, valueFlags, boolFlags []string) []string {
	valued := toSet(valueFlags)
	boolean := toSet(boolFlags)

	positionals := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			continue
		}
		if _, ok := boolean[canonical(arg)]; ok {
			continue
		}
		if _, ok := valued[canonical(arg)]; ok {
			i++ // skip the flag's value
			continue
		}
		if strings.HasPrefix(arg, "-") && arg != "-" {
			// Unknown flag; let the FlagSet report it, not us.
			continue
		}
		positionals = append(positionals, arg)
	}

	return positionals
}

// JsonConfigFlags inspects command-line arguments and extracts the config
// file path provided via the -c or -config flags.
//
// Only these flags are parsed; other arguments are ignored. If neither is
// present, an empty string is returned.
func JsonConfigFlags() string {
	var config string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"}, nil)

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(args)

	return config
}

// canonical maps the "--flag" spelling onto "-flag", the form the allow
// lists use.
func canonical(name string) string {
	if strings.HasPrefix(name, "--") {
		return name[1:]
	}
	return name
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
