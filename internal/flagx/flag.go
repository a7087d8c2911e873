// Package flagx lets several loaders each pick their own flags out of the
// command line without tripping over flags they do not define.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags named in allowed, together with their
// values. Both "-f value" and "-f=value" forms are recognised; a following
// argument starting with "-" is never taken as a value.
func FilterArgs(args []string, allowed []string) []string {
	names := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		names[f] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := names[name]; ok {
				out = append(out, arg)
			}
			continue
		}

		if _, ok := names[arg]; !ok {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigFile returns the value of -c / -config in args, or "".
func ConfigFile(args []string) string {
	return lookupString(args, "config", "c", "path to JSON or YAML config file")
}

// EnvFile returns the value of -e / -env in args, or "".
func EnvFile(args []string) string {
	return lookupString(args, "env", "e", "path to .env file")
}

// lookupString parses a single string flag with a long and a short name.
// The last occurrence wins.
func lookupString(args []string, long, short, usage string) string {
	var v string
	filtered := FilterArgs(args, []string{"-" + short, "-" + long, "--" + long})

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&v, long, "", usage)
	fs.StringVar(&v, short, "", usage)
	_ = fs.Parse(filtered)
	return v
}
